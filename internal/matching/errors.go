// internal/matching/errors.go
package matching

import "errors"

var (
	// ErrUserNotFound means the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrProfileNotFound means the user has no taste profile, or an
	// empty one, and therefore cannot participate in matching yet.
	ErrProfileNotFound = errors.New("taste profile is missing or empty")

	// ErrSelfSwipe rejects a swipe where from and to are the same user.
	ErrSelfSwipe = errors.New("cannot swipe on yourself")

	// ErrInvalidCount rejects a non-positive suggestion count.
	ErrInvalidCount = errors.New("count must be positive")

	// ErrAlreadySwiped means a swipe record already exists for this
	// ordered pair. Swipes are terminal; re-swiping is an error, not a
	// no-op.
	ErrAlreadySwiped = errors.New("already swiped on this user")
)
