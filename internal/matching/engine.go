// internal/matching/engine.go

package matching

import (
	"math"
	"time"
)

// Engine scores candidates against a user's preferences. Scoring is a total
// function over partial data: missing coordinates, tags or last-seen degrade
// to a neutral 0.5 sub-score, never an error.
type Engine struct {
	signals *SignalStore
	now     func() time.Time
}

func NewEngine(signals *SignalStore) *Engine {
	return &Engine{
		signals: signals,
		now:     time.Now,
	}
}

// Score calculates the compatibility of a candidate for a user under the
// given variant. The combined score is clamped to [0,1].
func (e *Engine) Score(user, candidate *Profile, prefs *Preferences, variant Variant) ScoredProfile {
	breakdown := ScoreBreakdown{
		Interests:     e.interestScore(user, candidate),
		Location:      e.locationScore(user, candidate, prefs),
		Age:           e.ageScore(candidate, prefs),
		Activity:      e.activityScore(candidate),
		Collaborative: e.signals.CollaborativeScore(user.ID, candidate.ID),
		Diversity:     e.signals.DiversityScore(user.ID, candidate),
	}

	var score float64
	switch variant {
	case VariantControl:
		// Basic filters only
		score = (breakdown.Interests + breakdown.Location + breakdown.Age) / 3
	case VariantMLInspired:
		// Collaborative filtering emphasis
		score = breakdown.Interests*0.2 +
			breakdown.Location*0.2 +
			breakdown.Age*0.1 +
			breakdown.Activity*0.2 +
			breakdown.Collaborative*0.4 +
			breakdown.Diversity*0.1
	default:
		// Advanced scoring with user-tunable weights
		score = breakdown.Interests*prefs.CompatibilityWeight +
			breakdown.Location*0.3 +
			breakdown.Age*0.2 +
			breakdown.Activity*prefs.ActivityWeight +
			breakdown.Collaborative*0.1 +
			breakdown.Diversity*prefs.DiversityWeight
	}

	score = math.Max(0, math.Min(1, score))

	return ScoredProfile{
		Profile:   candidate,
		Score:     score,
		Breakdown: breakdown,
	}
}

// interestScore is the Jaccard similarity of the two tag sets
func (e *Engine) interestScore(user, candidate *Profile) float64 {
	if len(user.Tags) == 0 || len(candidate.Tags) == 0 {
		return 0.5
	}

	tagSet := make(map[string]bool, len(user.Tags))
	for _, tag := range user.Tags {
		tagSet[tag] = true
	}

	candidateSet := make(map[string]bool, len(candidate.Tags))
	for _, tag := range candidate.Tags {
		candidateSet[tag] = true
	}

	matches := 0
	for tag := range candidateSet {
		if tagSet[tag] {
			matches++
		}
	}

	union := len(tagSet) + len(candidateSet) - matches
	if union == 0 {
		return 0.5
	}

	return float64(matches) / float64(union)
}

// locationScore decreases linearly with distance, hitting 0 at the
// preferred maximum. Neutral when either party lacks coordinates.
func (e *Engine) locationScore(user, candidate *Profile, prefs *Preferences) float64 {
	if user.Latitude == nil || user.Longitude == nil ||
		candidate.Latitude == nil || candidate.Longitude == nil {
		return 0.5
	}

	distance := haversineDistance(
		*user.Latitude, *user.Longitude,
		*candidate.Latitude, *candidate.Longitude,
	)

	if prefs.MaxDistance <= 0 || distance > prefs.MaxDistance {
		return 0
	}

	return math.Max(0, 1-(distance/prefs.MaxDistance))
}

// ageScore is 0 outside the preferred range, and otherwise rises toward
// the range midpoint. The falloff is normalized so an age exactly on a
// bound still scores above 0, and one year outside scores exactly 0.
func (e *Engine) ageScore(candidate *Profile, prefs *Preferences) float64 {
	if candidate.Age == 0 {
		return 0.5
	}

	age := float64(candidate.Age)
	min := float64(prefs.AgeRange.Min)
	max := float64(prefs.AgeRange.Max)

	if age < min || age > max {
		return 0
	}

	center := (min + max) / 2
	halfWidth := (max - min) / 2

	return math.Max(0, 1-(math.Abs(age-center)/(halfWidth+1)))
}

// activityScore buckets candidates by hours since last seen
func (e *Engine) activityScore(candidate *Profile) float64 {
	if candidate.LastSeen == nil {
		return 0.5
	}

	hours := e.now().Sub(*candidate.LastSeen).Hours()

	switch {
	case hours < 24:
		return 1.0
	case hours < 168: // 1 week
		return 0.7
	case hours < 720: // 1 month
		return 0.4
	default:
		return 0.1
	}
}

// haversineDistance returns the great-circle distance between two points in km
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371 // km

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// AssignVariant deterministically maps a user id to an experiment bucket
// (33/33/34 split), so the same user always sees the same formula.
func AssignVariant(userID string) Variant {
	bucket := stableHash(userID) % 100

	switch {
	case bucket < 33:
		return VariantControl
	case bucket < 66:
		return VariantAdvanced
	default:
		return VariantMLInspired
	}
}

// stableHash is a 32-bit string hash kept stable across releases; changing
// it would reshuffle every user's experiment bucket.
func stableHash(s string) int {
	var hash int32
	for _, c := range s {
		hash = (hash << 5) - hash + int32(c)
	}
	if hash < 0 {
		return int(-int64(hash))
	}
	return int(hash)
}
