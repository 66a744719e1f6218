// internal/matching/models.go

package matching

import (
	"time"

	"github.com/lib/pq"
)

// Variant selects one of the scoring formulas used for A/B comparison.
type Variant string

const (
	VariantControl    Variant = "control"
	VariantAdvanced   Variant = "advanced"
	VariantMLInspired Variant = "ml-inspired"
)

// Valid reports whether v is a known scoring variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantControl, VariantAdvanced, VariantMLInspired:
		return true
	}
	return false
}

// Profile is a candidate snapshot as read from the profiles table.
// Missing fields (coordinates, tags, last seen) are expected and degrade
// to neutral sub-scores rather than failing.
type Profile struct {
	ID          string         `json:"id" db:"id"`
	DisplayName string         `json:"display_name" db:"display_name"`
	Age         int            `json:"age" db:"age"`
	Latitude    *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64       `json:"longitude,omitempty" db:"longitude"`
	Tags        pq.StringArray `json:"tags" db:"tags"`
	College     string         `json:"college" db:"college"`
	Course      string         `json:"course" db:"course"`
	Gender      string         `json:"gender" db:"gender"`
	LastSeen    *time.Time     `json:"last_seen,omitempty" db:"last_seen"`
}

// AgeRange is the preferred candidate age window
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Preferences holds a user's matching preferences
type Preferences struct {
	AgeRange            AgeRange `json:"age_range"`
	MaxDistance         float64  `json:"max_distance"` // km
	PreferredGenders    []string `json:"preferred_genders"`
	Interests           []string `json:"interests"`
	ActivityWeight      float64  `json:"activity_weight"`      // 0-1
	DiversityWeight     float64  `json:"diversity_weight"`     // 0-1
	CompatibilityWeight float64  `json:"compatibility_weight"` // 0-1
}

// DefaultPreferences returns the preferences used before a user saves any
func DefaultPreferences() *Preferences {
	return &Preferences{
		AgeRange:            AgeRange{Min: 18, Max: 25},
		MaxDistance:         50,
		PreferredGenders:    []string{"Male", "Female", "Other"},
		Interests:           []string{},
		ActivityWeight:      0.3,
		DiversityWeight:     0.2,
		CompatibilityWeight: 0.5,
	}
}

// ScoreBreakdown holds the named sub-scores, each in [0,1]
type ScoreBreakdown struct {
	Interests     float64 `json:"interests"`
	Location      float64 `json:"location"`
	Age           float64 `json:"age"`
	Activity      float64 `json:"activity"`
	Collaborative float64 `json:"collaborative"`
	Diversity     float64 `json:"diversity"`
}

// ScoredProfile pairs a candidate with its compatibility score
type ScoredProfile struct {
	Profile   *Profile       `json:"profile"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Swipe records a like/pass action on a candidate
type Swipe struct {
	UserID    string    `json:"user_id" db:"user_id"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Liked     bool      `json:"liked" db:"liked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
