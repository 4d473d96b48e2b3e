// internal/matching/models.go
package matching

import (
	"time"

	"github.com/duetapp/duet-backend/internal/taste"
	"github.com/duetapp/duet-backend/internal/users"
)

// SwipeRecord is the directed edge (from, to) created when a user
// swipes. Exactly one record exists per ordered pair; only the matched
// flag changes after creation, flipped when the reverse liked edge
// appears.
type SwipeRecord struct {
	ID         int64     `json:"id" db:"id"`
	FromUserID int64     `json:"from_user_id" db:"from_user_id"`
	ToUserID   int64     `json:"to_user_id" db:"to_user_id"`
	Liked      bool      `json:"liked" db:"liked"`
	Matched    bool      `json:"matched" db:"matched"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// QueueEntry is a persisted, ranked suggestion awaiting a swipe.
// Unique per (user, suggested user); deleted when consumed, never
// updated in place except for the score being refined by the rescorer.
type QueueEntry struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	SuggestedUserID int64     `json:"suggested_user_id" db:"suggested_user_id"`
	Score           float64   `json:"score" db:"score"`
	Position        int64     `json:"position" db:"position"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Suggestion is a queue entry joined with the suggested user's public
// summary, the shape handed back to clients.
type Suggestion struct {
	UserID      int64   `json:"user_id" db:"suggested_user_id"`
	Username    string  `json:"username" db:"username"`
	DisplayName string  `json:"display_name" db:"display_name"`
	Age         int     `json:"age" db:"age"`
	Gender      string  `json:"gender" db:"gender"`
	Score       float64 `json:"score" db:"score"`
}

// Candidate pairs a user with their taste profile for scoring during a
// refill. Candidates always carry a non-empty profile.
type Candidate struct {
	User    *users.User
	Profile *taste.Profile
}

// SwipeResult is the outcome of a swipe action.
type SwipeResult struct {
	SwipeID int64          `json:"swipe_id"`
	IsMatch bool           `json:"is_match"`
	Target  *users.Summary `json:"target"`
}

// MatchInfo describes a mutual match: the other user's summary plus
// when the match completed (the later of the two liked edges).
type MatchInfo struct {
	UserID      int64     `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Age         int       `json:"age" db:"age"`
	Gender      string    `json:"gender" db:"gender"`
	MatchedAt   time.Time `json:"matched_at" db:"matched_at"`
}

// SwipeStats aggregates a user's swipe history.
type SwipeStats struct {
	TotalSwipes int     `json:"total_swipes" db:"total_swipes"`
	Likes       int     `json:"likes" db:"likes"`
	Passes      int     `json:"passes" db:"passes"`
	Matches     int     `json:"matches" db:"matches"`
	LikeRate    float64 `json:"like_rate"`
}
