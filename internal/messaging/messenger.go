// internal/messaging/messenger.go
// At-least-once message delivery: one immediate attempt, then a background
// retry queue drained on a fixed interval while the backend is reachable.

package messaging

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyMessage = errors.New("message text is empty")

// MessengerConfig tunes the retry behavior
type MessengerConfig struct {
	RetryInterval time.Duration // tick period of the retry loop
	MaxRetries    int           // attempts per queued message before giving up
}

// Messenger sends messages with at-least-once semantics from the sender's
// perspective. A message the user believes was sent is never dropped
// silently: it is either confirmed, or reported failed on the event stream.
type Messenger struct {
	store  Store
	config MessengerConfig

	mu    sync.Mutex
	queue map[string]*retryEntry

	events chan DeliveryEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessenger(store Store, config MessengerConfig) *Messenger {
	if config.RetryInterval <= 0 {
		config.RetryInterval = time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Messenger{
		store:  store,
		config: config,
		queue:  make(map[string]*retryEntry),
		events: make(chan DeliveryEvent, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the background retry loop
func (m *Messenger) Start() {
	m.wg.Add(1)
	go m.run()
}

func (m *Messenger) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.processQueue(m.ctx)
		case <-m.ctx.Done():
			return
		}
	}
}

// Send attempts one immediate delivery. On success the server-confirmed
// message is returned. On failure the message is enqueued for retry and the
// error is a *QueuedError carrying the temporary id, so the caller can show
// the message as pending rather than failed.
func (m *Messenger) Send(ctx context.Context, conversationID, text, senderID string) (*Message, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	message, err := m.attemptSend(ctx, conversationID, text, senderID)
	if err == nil {
		sendsTotal.WithLabelValues("sent").Inc()
		return message, nil
	}

	tempID := "temp-" + uuid.NewString()
	log.Printf("Initial send failed, queueing message %s for retry: %v", tempID, err)

	m.mu.Lock()
	m.queue[tempID] = &retryEntry{
		tempID:         tempID,
		conversationID: conversationID,
		text:           text,
		senderID:       senderID,
		enqueuedAt:     time.Now(),
	}
	pendingGauge.Set(float64(len(m.queue)))
	m.mu.Unlock()

	sendsTotal.WithLabelValues("queued").Inc()

	return nil, &QueuedError{TempID: tempID, Cause: err}
}

// attemptSend checks connectivity first so an unreachable backend fails
// fast instead of burning the caller's timeout on the insert.
func (m *Messenger) attemptSend(ctx context.Context, conversationID, text, senderID string) (*Message, error) {
	if err := m.store.Probe(ctx); err != nil {
		return nil, err
	}

	return m.store.InsertMessage(ctx, conversationID, text, senderID)
}

// processQueue is one tick of the retry loop. When the backend is
// unreachable the whole tick is skipped so no per-message attempt is
// wasted. Terminal failures are always surfaced on the event stream.
func (m *Messenger) processQueue(ctx context.Context) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}

	entries := make([]*retryEntry, 0, len(m.queue))
	for _, entry := range m.queue {
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	if err := m.store.Probe(ctx); err != nil {
		probeFailures.Inc()
		return
	}

	for _, entry := range entries {
		message, err := m.store.InsertMessage(ctx, entry.conversationID, entry.text, entry.senderID)
		if err != nil {
			m.recordFailure(entry)
			continue
		}

		m.dequeue(entry.tempID)
		sendsTotal.WithLabelValues("retried").Inc()
		log.Printf("Message %s sent after %d retries", entry.tempID, entry.attempts)

		m.emit(DeliveryEvent{
			Type:    DeliveryRetrySucceeded,
			TempID:  entry.tempID,
			Message: message,
		})
	}
}

func (m *Messenger) recordFailure(entry *retryEntry) {
	m.mu.Lock()
	current, ok := m.queue[entry.tempID]
	if !ok {
		m.mu.Unlock()
		return
	}

	current.attempts++
	exhausted := current.attempts >= m.config.MaxRetries
	if exhausted {
		delete(m.queue, entry.tempID)
	}
	pendingGauge.Set(float64(len(m.queue)))
	m.mu.Unlock()

	if !exhausted {
		log.Printf("Retry %d failed for message %s", current.attempts, entry.tempID)
		return
	}

	sendsTotal.WithLabelValues("failed").Inc()
	log.Printf("Message %s failed after %d retries", entry.tempID, m.config.MaxRetries)

	m.emit(DeliveryEvent{
		Type:   DeliveryFailed,
		TempID: entry.tempID,
		Err:    errors.New("retry budget exhausted"),
	})
}

func (m *Messenger) dequeue(tempID string) {
	m.mu.Lock()
	delete(m.queue, tempID)
	pendingGauge.Set(float64(len(m.queue)))
	m.mu.Unlock()
}

// emit delivers an event without blocking the retry loop; a full buffer
// drops the event rather than stalling delivery.
func (m *Messenger) emit(event DeliveryEvent) {
	select {
	case m.events <- event:
	default:
		log.Printf("Delivery event dropped: consumer not keeping up (temp id %s)", event.TempID)
	}
}

// Events exposes the delivery event stream consumed by the UI layer
func (m *Messenger) Events() <-chan DeliveryEvent {
	return m.events
}

// PendingCount reports the number of messages currently queued for retry
func (m *Messenger) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// ClearQueue drops all pending retries and stops the background loop.
// Intended for logout: delivery guarantees are traded for clean teardown.
func (m *Messenger) ClearQueue() {
	m.mu.Lock()
	m.queue = make(map[string]*retryEntry)
	pendingGauge.Set(0)
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
