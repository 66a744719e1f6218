// internal/messaging/realtime.go
// Per-conversation realtime subscriptions with bounded linear-backoff
// reconnect. Each subscription owns its own state machine and reconnect
// budget; budgets are never shared across conversations.

package messaging

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrReconnectExhausted is the terminal condition delivered to onError
	// once the reconnect budget is spent.
	ErrReconnectExhausted = errors.New("max reconnection attempts reached")

	// ErrConnectionIssue is the informational notice delivered while
	// reconnects are still in progress, rate-limited per subscription.
	ErrConnectionIssue = errors.New("realtime connection issue, retrying")
)

// SubscriptionState tracks where a subscription is in its lifecycle
type SubscriptionState string

const (
	StateUnsubscribed SubscriptionState = "unsubscribed"
	StateSubscribing  SubscriptionState = "subscribing"
	StateSubscribed   SubscriptionState = "subscribed"
	StateReconnecting SubscriptionState = "reconnecting"
	StateAbandoned    SubscriptionState = "abandoned"
)

// Stream is one live connection to a conversation's change feed
type Stream interface {
	Events() <-chan ChangeEvent
	Errors() <-chan error
	Close() error
}

// Dialer opens a Stream for a conversation
type Dialer interface {
	Dial(ctx context.Context, conversationID string) (Stream, error)
}

// ChannelManagerConfig tunes reconnect behavior
type ChannelManagerConfig struct {
	ReconnectDelay        time.Duration // linear backoff base
	MaxReconnectAttempts  int
	ConnectionNoticeEvery time.Duration // min gap between transient notices
}

// ChannelManager maintains at most one live subscription per conversation
// and invokes caller-supplied callbacks for inserted and updated messages.
type ChannelManager struct {
	dialer Dialer
	config ChannelManagerConfig

	mu   sync.Mutex
	subs map[string]*subscription

	// Injectable for deterministic tests
	afterFunc func(d time.Duration, f func()) *time.Timer
	now       func() time.Time
}

type subscription struct {
	conversationID string
	state          SubscriptionState
	attempts       int
	timer          *time.Timer
	stream         Stream
	lastNotice     time.Time

	onInsert func(*Message)
	onUpdate func(*Message)
	onError  func(error)
}

func NewChannelManager(dialer Dialer, config ChannelManagerConfig) *ChannelManager {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 2 * time.Second
	}
	if config.MaxReconnectAttempts <= 0 {
		config.MaxReconnectAttempts = 5
	}
	if config.ConnectionNoticeEvery <= 0 {
		config.ConnectionNoticeEvery = 30 * time.Second
	}

	return &ChannelManager{
		dialer:    dialer,
		config:    config,
		subs:      make(map[string]*subscription),
		afterFunc: time.AfterFunc,
		now:       time.Now,
	}
}

// Subscribe opens a subscription for the conversation, tearing down any
// existing one first so a conversation never has two live streams.
func (m *ChannelManager) Subscribe(conversationID string, onInsert, onUpdate func(*Message), onError func(error)) {
	m.Unsubscribe(conversationID)

	sub := &subscription{
		conversationID: conversationID,
		state:          StateSubscribing,
		onInsert:       onInsert,
		onUpdate:       onUpdate,
		onError:        onError,
	}

	m.mu.Lock()
	m.subs[conversationID] = sub
	subscriptionsGauge.Set(float64(len(m.subs)))
	m.mu.Unlock()

	m.open(sub)
}

// open dials the stream and starts pumping events. Dial failures go
// straight into the reconnect path.
func (m *ChannelManager) open(sub *subscription) {
	stream, err := m.dialer.Dial(context.Background(), sub.conversationID)
	if err != nil {
		log.Printf("Failed to subscribe to conversation %s: %v", sub.conversationID, err)
		m.handleReconnect(sub, err)
		return
	}

	m.mu.Lock()
	if m.subs[sub.conversationID] != sub {
		// Torn down while dialing
		m.mu.Unlock()
		stream.Close()
		return
	}
	sub.stream = stream
	sub.state = StateSubscribed
	sub.attempts = 0
	m.mu.Unlock()

	log.Printf("Subscribed to conversation %s", sub.conversationID)
	go m.pump(sub, stream)
}

// pump routes stream events to the caller's callbacks until the stream
// fails or is closed
func (m *ChannelManager) pump(sub *subscription, stream Stream) {
	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				stream.Close()
				m.streamError(sub, errors.New("stream closed"))
				return
			}
			message := event.Record.normalize()
			switch event.Type {
			case "INSERT":
				sub.onInsert(message)
			case "UPDATE":
				sub.onUpdate(message)
			}
		case err, ok := <-stream.Errors():
			if ok && err != nil {
				stream.Close()
				m.streamError(sub, err)
				return
			}
		}
	}
}

// streamError enters the reconnect path unless the subscription was
// already torn down
func (m *ChannelManager) streamError(sub *subscription, err error) {
	m.mu.Lock()
	current := m.subs[sub.conversationID] == sub
	m.mu.Unlock()

	if !current {
		return
	}

	log.Printf("Realtime subscription error for conversation %s: %v", sub.conversationID, err)
	m.handleReconnect(sub, err)
}

// handleReconnect schedules the next subscribe attempt with linear backoff
// (delay * attempt number), or abandons the subscription once the budget
// is spent. The caller always hears about the terminal case.
func (m *ChannelManager) handleReconnect(sub *subscription, cause error) {
	m.mu.Lock()

	if m.subs[sub.conversationID] != sub {
		m.mu.Unlock()
		return
	}

	if sub.attempts >= m.config.MaxReconnectAttempts {
		sub.state = StateAbandoned
		m.mu.Unlock()

		log.Printf("Max reconnection attempts reached for conversation %s", sub.conversationID)
		if sub.onError != nil {
			sub.onError(ErrReconnectExhausted)
		}
		return
	}

	sub.attempts++
	sub.state = StateReconnecting
	delay := m.config.ReconnectDelay * time.Duration(sub.attempts)

	notify := false
	if m.now().Sub(sub.lastNotice) >= m.config.ConnectionNoticeEvery {
		sub.lastNotice = m.now()
		notify = true
	}

	log.Printf("Reconnecting to conversation %s (%d/%d) in %v",
		sub.conversationID, sub.attempts, m.config.MaxReconnectAttempts, delay)
	reconnectsTotal.Inc()

	sub.timer = m.afterFunc(delay, func() {
		m.resubscribe(sub)
	})
	m.mu.Unlock()

	if notify && sub.onError != nil {
		sub.onError(ErrConnectionIssue)
	}
}

func (m *ChannelManager) resubscribe(sub *subscription) {
	m.mu.Lock()
	if m.subs[sub.conversationID] != sub || sub.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	sub.state = StateSubscribing
	m.mu.Unlock()

	m.open(sub)
}

// Unsubscribe tears down the conversation's subscription if present;
// no-op otherwise.
func (m *ChannelManager) Unsubscribe(conversationID string) {
	m.mu.Lock()
	sub, ok := m.subs[conversationID]
	if ok {
		delete(m.subs, conversationID)
	}
	subscriptionsGauge.Set(float64(len(m.subs)))
	m.mu.Unlock()

	if !ok {
		return
	}

	m.teardown(sub)
}

// UnsubscribeAll tears down every tracked subscription; used on logout
func (m *ChannelManager) UnsubscribeAll() {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.subs = make(map[string]*subscription)
	subscriptionsGauge.Set(0)
	m.mu.Unlock()

	for _, sub := range subs {
		m.teardown(sub)
	}
}

func (m *ChannelManager) teardown(sub *subscription) {
	if sub.timer != nil {
		sub.timer.Stop()
	}
	if sub.stream != nil {
		sub.stream.Close()
	}
	sub.state = StateUnsubscribed
}

// State reports the current lifecycle state for a conversation's
// subscription, StateUnsubscribed when none exists.
func (m *ChannelManager) State(conversationID string) SubscriptionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[conversationID]
	if !ok {
		return StateUnsubscribed
	}
	return sub.state
}

// ActiveSubscriptions reports how many conversations are being tracked
func (m *ChannelManager) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
