// internal/matching/repository.go
package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/duetapp/duet-backend/internal/taste"
	"github.com/duetapp/duet-backend/internal/users"
)

// Repository is the storage surface the matching core needs. The
// (from, to) and (user, suggested) uniqueness constraints live in the
// database and are the single source of truth for "already swiped" and
// "already queued".
type Repository interface {
	// Users and profiles
	GetUser(ctx context.Context, id int64) (*users.User, error)
	GetTasteProfile(ctx context.Context, userID int64) (*taste.Profile, error)
	// GetCandidates returns users outside excludedIDs that own a
	// non-empty taste profile, up to limit.
	GetCandidates(ctx context.Context, excludedIDs []int64, limit int) ([]*Candidate, error)

	// Swipes
	InsertSwipe(ctx context.Context, record *SwipeRecord) error
	// FindSwipe returns (nil, nil) when no record exists for the pair.
	FindSwipe(ctx context.Context, fromID, toID int64) (*SwipeRecord, error)
	MarkMatched(ctx context.Context, userA, userB int64) error
	GetSwipedUserIDs(ctx context.Context, ownerID int64) ([]int64, error)
	GetMatches(ctx context.Context, userID int64) ([]*MatchInfo, error)
	GetSwipeStats(ctx context.Context, userID int64) (*SwipeStats, error)

	// Queue
	// InsertQueueEntries writes the batch in one transaction; rows
	// conflicting with an existing (user, suggested) pair are skipped.
	// Returns the number of rows actually inserted.
	InsertQueueEntries(ctx context.Context, entries []*QueueEntry) (int, error)
	DeleteQueueEntry(ctx context.Context, ownerID, suggestedID int64) error
	GetQueueEntries(ctx context.Context, ownerID int64, limit int) ([]*Suggestion, error)
	GetQueuedUserIDs(ctx context.Context, ownerID int64) ([]int64, error)
	CountQueueEntries(ctx context.Context, ownerID int64) (int, error)
	MaxQueuePosition(ctx context.Context, ownerID int64) (int64, error)
	UpdateQueueScore(ctx context.Context, ownerID, suggestedID int64, score float64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetUser(ctx context.Context, id int64) (*users.User, error) {
	var user users.User
	query := `
        SELECT id, username, display_name, age, gender, orientation, created_at, updated_at
        FROM users
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *postgresRepository) GetTasteProfile(ctx context.Context, userID int64) (*taste.Profile, error) {
	var profile taste.Profile
	query := `
        SELECT user_id, genres, artists, songs, updated_at
        FROM taste_profiles
        WHERE user_id = $1
    `

	err := r.db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get taste profile: %w", err)
	}

	return &profile, nil
}

// candidateRow flattens the user + profile join for scanning.
type candidateRow struct {
	ID          int64          `db:"id"`
	Username    string         `db:"username"`
	DisplayName string         `db:"display_name"`
	Age         int            `db:"age"`
	Gender      string         `db:"gender"`
	Orientation string         `db:"orientation"`
	Genres      pq.StringArray `db:"genres"`
	Artists     pq.StringArray `db:"artists"`
	Songs       pq.StringArray `db:"songs"`
	UpdatedAt   time.Time      `db:"profile_updated_at"`
}

func (r *postgresRepository) GetCandidates(ctx context.Context, excludedIDs []int64, limit int) ([]*Candidate, error) {
	query := `
        SELECT u.id, u.username, u.display_name, u.age, u.gender, u.orientation,
               tp.genres, tp.artists, tp.songs, tp.updated_at AS profile_updated_at
        FROM users u
        JOIN taste_profiles tp ON tp.user_id = u.id
        WHERE u.id <> ALL($1)
          AND cardinality(tp.genres) + cardinality(tp.artists) + cardinality(tp.songs) > 0
        ORDER BY u.id
        LIMIT $2
    `

	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(excludedIDs), limit); err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}

	candidates := make([]*Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, &Candidate{
			User: &users.User{
				ID:          row.ID,
				Username:    row.Username,
				DisplayName: row.DisplayName,
				Age:         row.Age,
				Gender:      row.Gender,
				Orientation: row.Orientation,
			},
			Profile: &taste.Profile{
				UserID:    row.ID,
				Genres:    row.Genres,
				Artists:   row.Artists,
				Songs:     row.Songs,
				UpdatedAt: row.UpdatedAt,
			},
		})
	}

	return candidates, nil
}

func (r *postgresRepository) InsertSwipe(ctx context.Context, record *SwipeRecord) error {
	query := `
        INSERT INTO swipes (from_user_id, to_user_id, liked)
        VALUES ($1, $2, $3)
        RETURNING id, matched, created_at
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		record.FromUserID, record.ToUserID, record.Liked,
	).Scan(&record.ID, &record.Matched, &record.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadySwiped
	}
	if err != nil {
		return fmt.Errorf("failed to insert swipe: %w", err)
	}

	return nil
}

func (r *postgresRepository) FindSwipe(ctx context.Context, fromID, toID int64) (*SwipeRecord, error) {
	var record SwipeRecord
	query := `
        SELECT id, from_user_id, to_user_id, liked, matched, created_at
        FROM swipes
        WHERE from_user_id = $1 AND to_user_id = $2
    `

	err := r.db.GetContext(ctx, &record, query, fromID, toID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find swipe: %w", err)
	}

	return &record, nil
}

// MarkMatched flips the matched flag on both directed edges. The flag
// is query convenience only; GetMatches derives matches from the edges
// themselves.
func (r *postgresRepository) MarkMatched(ctx context.Context, userA, userB int64) error {
	query := `
        UPDATE swipes
        SET matched = TRUE
        WHERE (from_user_id = $1 AND to_user_id = $2)
           OR (from_user_id = $2 AND to_user_id = $1)
    `

	if _, err := r.db.ExecContext(ctx, query, userA, userB); err != nil {
		return fmt.Errorf("failed to mark matched: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetSwipedUserIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT to_user_id FROM swipes WHERE from_user_id = $1`

	if err := r.db.SelectContext(ctx, &ids, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get swiped user ids: %w", err)
	}

	return ids, nil
}

func (r *postgresRepository) GetMatches(ctx context.Context, userID int64) ([]*MatchInfo, error) {
	var matches []*MatchInfo
	query := `
        SELECT u.id AS user_id, u.username, u.display_name, u.age, u.gender,
               GREATEST(s1.created_at, s2.created_at) AS matched_at
        FROM swipes s1
        JOIN swipes s2 ON s2.from_user_id = s1.to_user_id AND s2.to_user_id = s1.from_user_id
        JOIN users u ON u.id = s1.to_user_id
        WHERE s1.from_user_id = $1 AND s1.liked AND s2.liked
        ORDER BY matched_at DESC
    `

	if err := r.db.SelectContext(ctx, &matches, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	return matches, nil
}

func (r *postgresRepository) GetSwipeStats(ctx context.Context, userID int64) (*SwipeStats, error) {
	var stats SwipeStats
	query := `
        SELECT COUNT(*) AS total_swipes,
               COUNT(*) FILTER (WHERE liked) AS likes,
               COUNT(*) FILTER (WHERE NOT liked) AS passes,
               COUNT(*) FILTER (WHERE liked AND EXISTS (
                   SELECT 1 FROM swipes r
                   WHERE r.from_user_id = s.to_user_id
                     AND r.to_user_id = s.from_user_id
                     AND r.liked
               )) AS matches
        FROM swipes s
        WHERE s.from_user_id = $1
    `

	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get swipe stats: %w", err)
	}

	return &stats, nil
}

// InsertQueueEntries writes the batch inside one transaction with
// per-row ON CONFLICT DO NOTHING: a concurrent refill racing on the
// same owner loses individual rows, never the batch.
func (r *postgresRepository) InsertQueueEntries(ctx context.Context, entries []*QueueEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin queue insert: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO match_queue (user_id, suggested_user_id, score, position)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, suggested_user_id) DO NOTHING
    `

	inserted := 0
	for _, entry := range entries {
		result, err := tx.ExecContext(ctx, query,
			entry.UserID, entry.SuggestedUserID, entry.Score, entry.Position,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert queue entry: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read queue insert result: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit queue insert: %w", err)
	}

	return inserted, nil
}

func (r *postgresRepository) DeleteQueueEntry(ctx context.Context, ownerID, suggestedID int64) error {
	query := `DELETE FROM match_queue WHERE user_id = $1 AND suggested_user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, ownerID, suggestedID); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetQueueEntries(ctx context.Context, ownerID int64, limit int) ([]*Suggestion, error) {
	var suggestions []*Suggestion
	query := `
        SELECT q.suggested_user_id, u.username, u.display_name, u.age, u.gender, q.score
        FROM match_queue q
        JOIN users u ON u.id = q.suggested_user_id
        WHERE q.user_id = $1
        ORDER BY q.score DESC, q.position ASC
        LIMIT $2
    `

	if err := r.db.SelectContext(ctx, &suggestions, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("failed to get queue entries: %w", err)
	}

	return suggestions, nil
}

func (r *postgresRepository) GetQueuedUserIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT suggested_user_id FROM match_queue WHERE user_id = $1`

	if err := r.db.SelectContext(ctx, &ids, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get queued user ids: %w", err)
	}

	return ids, nil
}

func (r *postgresRepository) CountQueueEntries(ctx context.Context, ownerID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM match_queue WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &count, query, ownerID); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}

	return count, nil
}

func (r *postgresRepository) MaxQueuePosition(ctx context.Context, ownerID int64) (int64, error) {
	var position int64
	query := `SELECT COALESCE(MAX(position), 0) FROM match_queue WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &position, query, ownerID); err != nil {
		return 0, fmt.Errorf("failed to get max queue position: %w", err)
	}

	return position, nil
}

// UpdateQueueScore refines a stored score. A row already consumed by a
// swipe updates nothing, which is fine.
func (r *postgresRepository) UpdateQueueScore(ctx context.Context, ownerID, suggestedID int64, score float64) error {
	query := `UPDATE match_queue SET score = $3 WHERE user_id = $1 AND suggested_user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, ownerID, suggestedID, score); err != nil {
		return fmt.Errorf("failed to update queue score: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
