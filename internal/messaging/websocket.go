// internal/messaging/websocket.go
// Websocket implementation of the realtime Stream/Dialer contracts. The
// upstream feed delivers JSON change events with snake_case record fields.

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebsocketDialer dials the upstream realtime feed
type WebsocketDialer struct {
	baseURL string
	header  http.Header
}

func NewWebsocketDialer(baseURL string, header http.Header) *WebsocketDialer {
	return &WebsocketDialer{
		baseURL: baseURL,
		header:  header,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, conversationID string) (Stream, error) {
	endpoint := fmt.Sprintf("%s?conversation_id=%s", d.baseURL, url.QueryEscape(conversationID))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, d.header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime feed: %w", err)
	}

	stream := &wsStream{
		conn:   conn,
		events: make(chan ChangeEvent, 32),
		errs:   make(chan error, 1),
	}
	go stream.readLoop()

	return stream, nil
}

type wsStream struct {
	conn   *websocket.Conn
	events chan ChangeEvent
	errs   chan error
}

func (s *wsStream) readLoop() {
	defer close(s.events)

	for {
		var event ChangeEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			s.errs <- err
			return
		}
		s.events <- event
	}
}

func (s *wsStream) Events() <-chan ChangeEvent {
	return s.events
}

func (s *wsStream) Errors() <-chan error {
	return s.errs
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
