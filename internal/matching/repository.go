// internal/matching/repository.go

package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	FindCandidates(ctx context.Context, userID string, prefs *Preferences, limit int) ([]*Profile, error)
	RecordSwipe(ctx context.Context, swipe *Swipe) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const profileColumns = `
	id,
	display_name,
	COALESCE(date_part('year', age(date_of_birth))::int, 0) AS age,
	latitude,
	longitude,
	COALESCE(tags, '{}') AS tags,
	COALESCE(college, '') AS college,
	COALESCE(course, '') AS course,
	COALESCE(gender, '') AS gender,
	last_seen`

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1`, profileColumns)

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// FindCandidates returns profiles the user has not swiped yet, filtered by
// preferred gender. Scoring/ordering happens in memory, not in SQL.
func (r *postgresRepository) FindCandidates(ctx context.Context, userID string, prefs *Preferences, limit int) ([]*Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM profiles p
		WHERE p.id != $1
		AND ($2::text[] IS NULL OR p.gender = ANY($2))
		AND NOT EXISTS (
			SELECT 1 FROM swipes s
			WHERE s.user_id = $1 AND s.target_id = p.id
		)
		ORDER BY p.last_seen DESC NULLS LAST
		LIMIT $3`, profileColumns)

	var genders interface{}
	if len(prefs.PreferredGenders) > 0 {
		genders = pq.Array(prefs.PreferredGenders)
	}

	var candidates []*Profile
	err := r.db.SelectContext(ctx, &candidates, query, userID, genders, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}

	return candidates, nil
}

func (r *postgresRepository) RecordSwipe(ctx context.Context, swipe *Swipe) error {
	query := `
		INSERT INTO swipes (user_id, target_id, liked, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, target_id)
		DO UPDATE SET liked = EXCLUDED.liked, created_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, swipe.UserID, swipe.TargetID, swipe.Liked)
	if err != nil {
		return fmt.Errorf("failed to record swipe: %w", err)
	}

	return nil
}
