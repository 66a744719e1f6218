// internal/messaging/repository.go

package messaging

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store persists messages and answers the connectivity probe. The probe is
// the messenger's only connectivity signal; there is no socket-level
// heartbeat.
type Store interface {
	InsertMessage(ctx context.Context, conversationID, text, senderID string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	Probe(ctx context.Context) error
}

type postgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) InsertMessage(ctx context.Context, conversationID, text, senderID string) (*Message, error) {
	query := `
		INSERT INTO messages (conversation_id, text, sender_id)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, sender_id, text, is_read, created_at`

	var message Message
	err := s.db.GetContext(ctx, &message, query, conversationID, text, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return &message, nil
}

func (s *postgresStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, text, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var messages []*Message
	err := s.db.SelectContext(ctx, &messages, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// Probe is a minimal one-row read; reachability of the database is taken as
// the connectivity signal for the retry loop.
func (s *postgresStore) Probe(ctx context.Context) error {
	var id string
	err := s.db.GetContext(ctx, &id, `SELECT id FROM profiles LIMIT 1`)
	if err != nil {
		return fmt.Errorf("connectivity probe failed: %w", err)
	}
	return nil
}
