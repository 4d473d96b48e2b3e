// internal/taste/repository.go

package taste

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines storage for taste profiles.
type Repository interface {
	Upsert(ctx context.Context, profile *Profile) (*Profile, error)
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
}

// postgresRepository implements Repository using PostgreSQL.
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Upsert writes the profile, replacing any previous one for the user.
func (r *postgresRepository) Upsert(ctx context.Context, profile *Profile) (*Profile, error) {
	query := `
		INSERT INTO taste_profiles (user_id, genres, artists, songs, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET genres = EXCLUDED.genres,
		    artists = EXCLUDED.artists,
		    songs = EXCLUDED.songs,
		    updated_at = NOW()
		RETURNING user_id, genres, artists, songs, updated_at`

	var saved Profile
	err := r.db.QueryRowxContext(ctx, query,
		profile.UserID, profile.Genres, profile.Artists, profile.Songs,
	).StructScan(&saved)
	if isForeignKeyViolation(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert taste profile: %w", err)
	}

	return &saved, nil
}

// GetByUserID retrieves the taste profile for a user.
func (r *postgresRepository) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `
		SELECT user_id, genres, artists, songs, updated_at
		FROM taste_profiles
		WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get taste profile: %w", err)
	}

	return &profile, nil
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (SQLSTATE 23503), here meaning the owning user is gone.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
