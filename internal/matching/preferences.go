// internal/matching/preferences.go

package matching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// PreferenceStore persists per-user matching preferences. The app also keeps
// a copy on-device; this store is the backend side of that contract.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Save(ctx context.Context, userID string, prefs *Preferences) error
}

type redisPreferenceStore struct {
	client *redis.Client
}

func NewRedisPreferenceStore(client *redis.Client) PreferenceStore {
	return &redisPreferenceStore{client: client}
}

func preferenceKey(userID string) string {
	return "matching:prefs:" + userID
}

// Get returns the stored preferences, or the defaults when the user has
// never saved any.
func (s *redisPreferenceStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	data, err := s.client.Get(ctx, preferenceKey(userID)).Bytes()
	if err == redis.Nil {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}

	return &prefs, nil
}

func (s *redisPreferenceStore) Save(ctx context.Context, userID string, prefs *Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := s.client.Set(ctx, preferenceKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	return nil
}
