// internal/matching/service.go

package matching

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"
)

var ErrInvalidPreferences = errors.New("invalid preferences")

type Service interface {
	// Ranking
	RankCandidates(ctx context.Context, userID string, variant Variant) ([]*Profile, error)
	AssignVariant(userID string) Variant

	// Swipes
	RecordSwipe(ctx context.Context, userID, targetID string, liked bool) error

	// Preferences
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	SavePreferences(ctx context.Context, userID string, prefs *Preferences) error

	// Cache control
	InvalidateCache(userID string)
}

// ServiceConfig bounds the ranking work
type ServiceConfig struct {
	CacheTTL      time.Duration
	CacheMaxSize  int
	MaxCandidates int
}

type service struct {
	repo          Repository
	prefsStore    PreferenceStore
	engine        *Engine
	signals       *SignalStore
	cache         *rankCache
	maxCandidates int
}

func NewService(repo Repository, prefsStore PreferenceStore, engine *Engine, signals *SignalStore, cfg ServiceConfig) Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = 50
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 200
	}

	return &service{
		repo:          repo,
		prefsStore:    prefsStore,
		engine:        engine,
		signals:       signals,
		cache:         newRankCache(cfg.CacheTTL, cfg.CacheMaxSize),
		maxCandidates: cfg.MaxCandidates,
	}
}

// RankCandidates returns the user's candidate pool ordered by descending
// estimated compatibility. Results are cached per (user, preferences,
// variant) until the TTL lapses or the preferences change.
func (s *service) RankCandidates(ctx context.Context, userID string, variant Variant) ([]*Profile, error) {
	if !variant.Valid() {
		variant = s.AssignVariant(userID)
	}

	user, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs, err := s.prefsStore.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(userID, prefs, variant)
	if cached, ok := s.cache.Get(key); ok {
		rankCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	rankCacheHits.WithLabelValues("miss").Inc()

	candidates, err := s.repo.FindCandidates(ctx, userID, prefs, s.maxCandidates)
	if err != nil {
		return nil, err
	}

	ranked := s.rank(user, candidates, prefs, variant)
	s.cache.Set(key, ranked)

	return ranked, nil
}

// rank scores the pool (capped at maxCandidates) and sorts descending.
// Scores within 0.01 of each other are ordered randomly so near-equal
// candidates do not always appear in the same order.
func (s *service) rank(user *Profile, candidates []*Profile, prefs *Preferences, variant Variant) []*Profile {
	start := time.Now()
	defer func() {
		rankDuration.Observe(time.Since(start).Seconds())
	}()

	if len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}

	scored := make([]ScoredProfile, 0, len(candidates))
	for _, candidate := range candidates {
		result := s.engine.Score(user, candidate, prefs, variant)
		compatibilityScores.Observe(result.Score)
		scored = append(scored, result)
	}

	sort.Slice(scored, func(i, j int) bool {
		if math.Abs(scored[i].Score-scored[j].Score) < 0.01 {
			return rand.Intn(2) == 0
		}
		return scored[i].Score > scored[j].Score
	})

	ranked := make([]*Profile, len(scored))
	for i, item := range scored {
		ranked[i] = item.Profile
	}

	return ranked
}

// AssignVariant is deterministic per user id
func (s *service) AssignVariant(userID string) Variant {
	variant := AssignVariant(userID)
	variantAssignments.WithLabelValues(string(variant)).Inc()
	return variant
}

// RecordSwipe persists the swipe and feeds the in-memory signals. A swiped
// profile was necessarily shown, so it also enters the diversity window.
func (s *service) RecordSwipe(ctx context.Context, userID, targetID string, liked bool) error {
	swipe := &Swipe{
		UserID:   userID,
		TargetID: targetID,
		Liked:    liked,
	}

	if err := s.repo.RecordSwipe(ctx, swipe); err != nil {
		return err
	}

	s.signals.RecordOutcome(userID, targetID, liked)

	if target, err := s.repo.GetProfile(ctx, targetID); err == nil {
		s.signals.RecordShown(userID, target)
	}

	action := "pass"
	if liked {
		action = "like"
	}
	swipesTotal.WithLabelValues(action).Inc()

	return nil
}

func (s *service) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	return s.prefsStore.Get(ctx, userID)
}

// SavePreferences validates, persists and invalidates the user's cached
// rankings so the next discover request reflects the new preferences.
func (s *service) SavePreferences(ctx context.Context, userID string, prefs *Preferences) error {
	if prefs.AgeRange.Min > prefs.AgeRange.Max {
		return ErrInvalidPreferences
	}
	if prefs.MaxDistance < 0 {
		return ErrInvalidPreferences
	}

	if err := s.prefsStore.Save(ctx, userID, prefs); err != nil {
		return err
	}

	s.cache.InvalidateUser(userID)
	return nil
}

func (s *service) InvalidateCache(userID string) {
	s.cache.InvalidateUser(userID)
}
