package matching

import (
	"fmt"
	"testing"
)

func TestCollaborativeScoreNeutralWithoutHistory(t *testing.T) {
	signals := NewSignalStore(SignalConfig{})

	approx(t, signals.CollaborativeScore("user-1", "cand-1"), 0.5)

	// History without any similar user is still neutral
	signals.RecordOutcome("user-1", "cand-1", true)
	approx(t, signals.CollaborativeScore("user-1", "cand-2"), 0.5)
}

func TestCollaborativeScoreSimilarUsers(t *testing.T) {
	signals := NewSignalStore(SignalConfig{SharedLikes: 3})

	// user-1 and user-2 like the same three candidates
	for _, id := range []string{"cand-a", "cand-b", "cand-c"} {
		signals.RecordOutcome("user-2", id, true)
	}
	signals.RecordOutcome("user-2", "cand-hot", true)
	for _, id := range []string{"cand-a", "cand-b", "cand-c"} {
		signals.RecordOutcome("user-1", id, true)
	}

	// A similar user liked cand-hot
	approx(t, signals.CollaborativeScore("user-1", "cand-hot"), 0.8)

	// No similar user liked cand-cold
	approx(t, signals.CollaborativeScore("user-1", "cand-cold"), 0.3)
}

func TestCollaborativeScoreBelowThreshold(t *testing.T) {
	signals := NewSignalStore(SignalConfig{SharedLikes: 3})

	// Only two shared likes, under the threshold
	for _, id := range []string{"cand-a", "cand-b"} {
		signals.RecordOutcome("user-2", id, true)
		signals.RecordOutcome("user-1", id, true)
	}
	signals.RecordOutcome("user-2", "cand-hot", true)

	approx(t, signals.CollaborativeScore("user-1", "cand-hot"), 0.5)
}

func TestSwipeHistoryBounded(t *testing.T) {
	signals := NewSignalStore(SignalConfig{HistorySize: 5})

	for i := 0; i < 20; i++ {
		signals.RecordOutcome("user-1", fmt.Sprintf("cand-%d", i), true)
	}

	record := signals.collaborative["user-1"]
	if len(record.swiped) != 5 {
		t.Fatalf("swiped history not bounded: %d", len(record.swiped))
	}
	if len(record.liked) != 5 {
		t.Fatalf("liked history not bounded: %d", len(record.liked))
	}
	// Oldest dropped, newest kept
	if record.liked[0] != "cand-15" || record.liked[4] != "cand-19" {
		t.Fatalf("unexpected ring contents: %v", record.liked)
	}
}

func TestDiversityScoreNeutralWithoutHistory(t *testing.T) {
	signals := NewSignalStore(SignalConfig{})

	candidate := &Profile{ID: "cand-1", College: "Unilag", Course: "CS"}
	approx(t, signals.DiversityScore("user-1", candidate), 0.5)
}

func TestDiversityScorePenalties(t *testing.T) {
	signals := NewSignalStore(SignalConfig{RecentWindow: 10})

	shown := &Profile{
		ID:      "cand-1",
		College: "Unilag",
		Course:  "CS",
		Tags:    []string{"music", "coding"},
	}
	signals.RecordShown("user-1", shown)

	t.Run("no overlap scores 1", func(t *testing.T) {
		fresh := &Profile{ID: "cand-2", College: "UI", Course: "Law", Tags: []string{"sports"}}
		approx(t, signals.DiversityScore("user-1", fresh), 1)
	})

	t.Run("college overlap", func(t *testing.T) {
		candidate := &Profile{ID: "cand-3", College: "Unilag", Course: "Law"}
		approx(t, signals.DiversityScore("user-1", candidate), 0.8)
	})

	t.Run("college and course overlap", func(t *testing.T) {
		candidate := &Profile{ID: "cand-4", College: "Unilag", Course: "CS"}
		approx(t, signals.DiversityScore("user-1", candidate), 0.6)
	})

	t.Run("full overlap", func(t *testing.T) {
		// 0.2 college + 0.2 course + 0.3 * (2/2 tags)
		candidate := &Profile{
			ID: "cand-5", College: "Unilag", Course: "CS",
			Tags: []string{"music", "coding"},
		}
		approx(t, signals.DiversityScore("user-1", candidate), 0.3)
	})

	t.Run("partial tag overlap", func(t *testing.T) {
		candidate := &Profile{ID: "cand-6", Tags: []string{"music", "sports"}}
		approx(t, signals.DiversityScore("user-1", candidate), 1-0.3*0.5)
	})
}

func TestDiversityWindowBounded(t *testing.T) {
	signals := NewSignalStore(SignalConfig{RecentWindow: 3})

	for i := 0; i < 10; i++ {
		signals.RecordShown("user-1", &Profile{
			ID:      fmt.Sprintf("cand-%d", i),
			College: fmt.Sprintf("college-%d", i),
		})
	}

	// Only the last 3 colleges still count against diversity
	old := &Profile{ID: "cand-x", College: "college-0"}
	approx(t, signals.DiversityScore("user-1", old), 1)

	recent := &Profile{ID: "cand-y", College: "college-9"}
	approx(t, signals.DiversityScore("user-1", recent), 0.8)
}

func TestSimilarUserCap(t *testing.T) {
	signals := NewSignalStore(SignalConfig{SharedLikes: 1, SimilarUserCap: 2})

	for i := 0; i < 5; i++ {
		signals.RecordOutcome(fmt.Sprintf("user-%d", i), "cand-a", true)
	}
	signals.RecordOutcome("me", "cand-a", true)

	record := signals.collaborative["me"]
	if len(record.similarUsers) != 2 {
		t.Fatalf("similar users not capped: %d", len(record.similarUsers))
	}
}
