// internal/messaging/models.go

package messaging

import (
	"fmt"
	"time"
)

// Message is a chat message confirmed by the backend
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id" db:"sender_id"`
	Text           string    `json:"text" db:"text"`
	IsRead         bool      `json:"is_read" db:"is_read"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// QueuedError signals that a send attempt failed and the message was placed
// on the retry queue. The UI shows the message as pending, keyed by TempID,
// until a delivery event reconciles it.
type QueuedError struct {
	TempID string
	Cause  error
}

func (e *QueuedError) Error() string {
	return fmt.Sprintf("message queued for retry (temp id %s): %v", e.TempID, e.Cause)
}

func (e *QueuedError) Unwrap() error {
	return e.Cause
}

// DeliveryEventType classifies messenger events
type DeliveryEventType string

const (
	// DeliveryRetrySucceeded means a queued message was confirmed; Message
	// carries the server-assigned row to reconcile the optimistic copy.
	DeliveryRetrySucceeded DeliveryEventType = "retry_succeeded"

	// DeliveryFailed means the retry budget is exhausted; the message will
	// not be attempted again.
	DeliveryFailed DeliveryEventType = "failed"
)

// DeliveryEvent is emitted by the messenger's background retry loop
type DeliveryEvent struct {
	Type    DeliveryEventType `json:"type"`
	TempID  string            `json:"temp_id"`
	Message *Message          `json:"message,omitempty"`
	Err     error             `json:"-"`
}

// retryEntry is one message waiting on the retry queue
type retryEntry struct {
	tempID         string
	conversationID string
	text           string
	senderID       string
	attempts       int
	enqueuedAt     time.Time
}

// wireMessage is the snake_case shape the realtime feed delivers
type wireMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
	IsRead         bool   `json:"is_read"`
	CreatedAt      string `json:"created_at"`
}

// normalize converts a wire record to the internal message shape
func (w *wireMessage) normalize() *Message {
	createdAt, err := time.Parse(time.RFC3339, w.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	return &Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		SenderID:       w.SenderID,
		Text:           w.Text,
		IsRead:         w.IsRead,
		CreatedAt:      createdAt,
	}
}

// ChangeEvent is one insert/update notification from the realtime feed
type ChangeEvent struct {
	Type   string      `json:"type"` // "INSERT" or "UPDATE"
	Record wireMessage `json:"record"`
}
