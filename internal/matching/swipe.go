// internal/matching/swipe.go
package matching

import (
	"context"

	"go.uber.org/zap"
)

// SwipeEngine applies like/pass actions and derives everything that
// follows from them: mutual-match detection, queue consumption and the
// opportunistic post-swipe refill. The swipes table's (from, to)
// uniqueness constraint is the sole arbiter of "already swiped" — the
// insert is attempted directly, never preceded by an existence check.
type SwipeEngine struct {
	repo   Repository
	queue  *QueueManager
	hub    *Hub // optional
	logger *zap.Logger
}

func NewSwipeEngine(repo Repository, queue *QueueManager, hub *Hub, logger *zap.Logger) *SwipeEngine {
	return &SwipeEngine{
		repo:   repo,
		queue:  queue,
		hub:    hub,
		logger: logger,
	}
}

// Swipe records the caller's decision on the target. The pair is
// terminal once swiped; a second attempt fails with ErrAlreadySwiped.
// A liked swipe whose reverse edge is also liked completes a mutual
// match: the result carries IsMatch and both users are notified.
func (e *SwipeEngine) Swipe(ctx context.Context, fromID, toID int64, liked bool) (*SwipeResult, error) {
	if fromID == toID {
		return nil, ErrSelfSwipe
	}

	if _, err := e.repo.GetUser(ctx, fromID); err != nil {
		return nil, err
	}
	target, err := e.repo.GetUser(ctx, toID)
	if err != nil {
		return nil, err
	}

	record := &SwipeRecord{
		FromUserID: fromID,
		ToUserID:   toID,
		Liked:      liked,
	}
	if err := e.repo.InsertSwipe(ctx, record); err != nil {
		return nil, err
	}
	RecordSwipe(liked)

	// Consume the queue entry if one exists. The target may never have
	// been queued for this user, so absence — and even failure — only
	// warrants a log line.
	if err := e.queue.RemoveEntry(ctx, fromID, toID); err != nil {
		e.logger.Warn("failed to consume queue entry after swipe",
			zap.Int64("from_user_id", fromID),
			zap.Int64("to_user_id", toID),
			zap.Error(err),
		)
	}

	isMatch := false
	if liked {
		isMatch, err = e.detectMatch(ctx, fromID, toID)
		if err != nil {
			e.logger.Warn("reverse swipe lookup failed",
				zap.Int64("from_user_id", fromID),
				zap.Int64("to_user_id", toID),
				zap.Error(err),
			)
		}
	}

	e.queue.RefillIfThin(ctx, fromID)

	return &SwipeResult{
		SwipeID: record.ID,
		IsMatch: isMatch,
		Target:  target.Summary(),
	}, nil
}

// detectMatch checks for the reverse liked edge and, when found, flips
// the convenience matched flag and pushes notifications.
func (e *SwipeEngine) detectMatch(ctx context.Context, fromID, toID int64) (bool, error) {
	reverse, err := e.repo.FindSwipe(ctx, toID, fromID)
	if err != nil {
		return false, err
	}
	if reverse == nil || !reverse.Liked {
		return false, nil
	}

	if err := e.repo.MarkMatched(ctx, fromID, toID); err != nil {
		// The edges themselves already prove the match.
		e.logger.Warn("failed to flip matched flag",
			zap.Int64("from_user_id", fromID),
			zap.Int64("to_user_id", toID),
			zap.Error(err),
		)
	}

	e.logger.Info("mutual match",
		zap.Int64("user_a", fromID),
		zap.Int64("user_b", toID),
	)
	RecordMatch()

	if e.hub != nil {
		e.hub.NotifyMatch(fromID, toID)
	}

	return true, nil
}

// GetMatches lists the user's mutual matches, newest first. Matches are
// derived from the directed edges, not the matched flag.
func (e *SwipeEngine) GetMatches(ctx context.Context, userID int64) ([]*MatchInfo, error) {
	if _, err := e.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	matches, err := e.repo.GetMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []*MatchInfo{}
	}

	return matches, nil
}

// GetStats aggregates the user's swipe history.
func (e *SwipeEngine) GetStats(ctx context.Context, userID int64) (*SwipeStats, error) {
	if _, err := e.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	stats, err := e.repo.GetSwipeStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	if stats.TotalSwipes > 0 {
		stats.LikeRate = float64(stats.Likes) / float64(stats.TotalSwipes)
	}

	return stats, nil
}
