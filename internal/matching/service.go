// internal/matching/service.go
package matching

import (
	"context"
)

// Service is the facade the transport layer talks to.
type Service interface {
	GetSuggestions(ctx context.Context, userID int64, count int) ([]*Suggestion, error)
	Swipe(ctx context.Context, fromID, toID int64, liked bool) (*SwipeResult, error)
	GetMatches(ctx context.Context, userID int64) ([]*MatchInfo, error)
	GetStats(ctx context.Context, userID int64) (*SwipeStats, error)
}

type service struct {
	queue  *QueueManager
	engine *SwipeEngine
}

func NewService(queue *QueueManager, engine *SwipeEngine) Service {
	return &service{
		queue:  queue,
		engine: engine,
	}
}

func (s *service) GetSuggestions(ctx context.Context, userID int64, count int) ([]*Suggestion, error) {
	return s.queue.GetSuggestions(ctx, userID, count)
}

func (s *service) Swipe(ctx context.Context, fromID, toID int64, liked bool) (*SwipeResult, error) {
	return s.engine.Swipe(ctx, fromID, toID, liked)
}

func (s *service) GetMatches(ctx context.Context, userID int64) ([]*MatchInfo, error) {
	return s.engine.GetMatches(ctx, userID)
}

func (s *service) GetStats(ctx context.Context, userID int64) (*SwipeStats, error) {
	return s.engine.GetStats(ctx, userID)
}
