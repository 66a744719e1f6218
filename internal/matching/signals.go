// internal/matching/signals.go

package matching

import "sync"

// SignalStore keeps the session-local collaborative and diversity signals.
// Everything here is an optimization over data the backend already owns, so
// it is intentionally transient: lost on restart, never persisted.
type SignalStore struct {
	mu sync.Mutex

	historySize    int // swiped/liked ring buffer bound
	recentWindow   int // diversity window bound
	similarUserCap int
	sharedLikes    int // minimum liked-set intersection for "similar"

	collaborative map[string]*collaborativeRecord
	diversity     map[string]*diversityRecord
}

type collaborativeRecord struct {
	swiped       []string
	liked        []string
	similarUsers []string
}

type diversityRecord struct {
	recentColleges []string
	recentCourses  []string
	recentTags     []string
}

// SignalConfig bounds the in-memory signal state
type SignalConfig struct {
	HistorySize    int
	RecentWindow   int
	SimilarUserCap int
	SharedLikes    int
}

func NewSignalStore(cfg SignalConfig) *SignalStore {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 10
	}
	if cfg.SimilarUserCap <= 0 {
		cfg.SimilarUserCap = 10
	}
	if cfg.SharedLikes <= 0 {
		cfg.SharedLikes = 3
	}

	return &SignalStore{
		historySize:    cfg.HistorySize,
		recentWindow:   cfg.RecentWindow,
		similarUserCap: cfg.SimilarUserCap,
		sharedLikes:    cfg.SharedLikes,
		collaborative:  make(map[string]*collaborativeRecord),
		diversity:      make(map[string]*diversityRecord),
	}
}

// RecordOutcome appends a swipe to the user's history and recomputes the
// similar-users list. Never fails.
func (s *SignalStore) RecordOutcome(userID, candidateID string, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.collaborative[userID]
	if !ok {
		record = &collaborativeRecord{}
		s.collaborative[userID] = record
	}

	record.swiped = appendBounded(record.swiped, candidateID, s.historySize)
	if liked {
		record.liked = appendBounded(record.liked, candidateID, s.historySize)
	}

	s.updateSimilarUsers(userID, record)
}

// RecordShown tracks a displayed candidate so near-duplicates get penalized
func (s *SignalStore) RecordShown(userID string, candidate *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.diversity[userID]
	if !ok {
		record = &diversityRecord{}
		s.diversity[userID] = record
	}

	if candidate.College != "" {
		record.recentColleges = appendBounded(record.recentColleges, candidate.College, s.recentWindow)
	}
	if candidate.Course != "" {
		record.recentCourses = appendBounded(record.recentCourses, candidate.Course, s.recentWindow)
	}
	for _, tag := range candidate.Tags {
		record.recentTags = appendBounded(record.recentTags, tag, s.recentWindow)
	}
}

// CollaborativeScore estimates "users who liked what you liked also liked
// this": 0.8 when a similar user liked the candidate, 0.3 when none did,
// neutral 0.5 without history.
func (s *SignalStore) CollaborativeScore(userID, candidateID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.collaborative[userID]
	if !ok || len(record.similarUsers) == 0 {
		return 0.5
	}

	for _, similarID := range record.similarUsers {
		similar, ok := s.collaborative[similarID]
		if !ok {
			continue
		}
		if containsID(similar.liked, candidateID) {
			return 0.8
		}
	}

	return 0.3
}

// DiversityScore starts at 1.0 and subtracts penalties for college, course
// and tag overlap with recently shown candidates. Neutral without history.
func (s *SignalStore) DiversityScore(userID string, candidate *Profile) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.diversity[userID]
	if !ok {
		return 0.5
	}

	penalty := 0.0

	if candidate.College != "" && containsID(record.recentColleges, candidate.College) {
		penalty += 0.2
	}
	if candidate.Course != "" && containsID(record.recentCourses, candidate.Course) {
		penalty += 0.2
	}

	if len(candidate.Tags) > 0 {
		shared := 0
		for _, tag := range candidate.Tags {
			if containsID(record.recentTags, tag) {
				shared++
			}
		}
		penalty += float64(shared) / float64(len(candidate.Tags)) * 0.3
	}

	if penalty > 1 {
		return 0
	}
	return 1 - penalty
}

// updateSimilarUsers recomputes the similar-user list for userID. Two users
// are similar when their liked sets intersect in at least sharedLikes
// members. Caller holds the lock.
func (s *SignalStore) updateSimilarUsers(userID string, record *collaborativeRecord) {
	similar := make([]string, 0, s.similarUserCap)

	for otherID, other := range s.collaborative {
		if otherID == userID {
			continue
		}

		shared := 0
		for _, likedID := range record.liked {
			if containsID(other.liked, likedID) {
				shared++
			}
		}

		if shared >= s.sharedLikes {
			similar = append(similar, otherID)
			if len(similar) >= s.similarUserCap {
				break
			}
		}
	}

	record.similarUsers = similar
}

// appendBounded appends and drops the oldest entries beyond the bound
func appendBounded(items []string, item string, bound int) []string {
	items = append(items, item)
	if len(items) > bound {
		items = items[len(items)-bound:]
	}
	return items
}

func containsID(items []string, id string) bool {
	for _, item := range items {
		if item == id {
			return true
		}
	}
	return false
}
