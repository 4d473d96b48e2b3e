// internal/taste/service.go

package taste

import (
	"context"
	"errors"
	"fmt"
)

// Service errors
var (
	ErrProfileNotFound = errors.New("taste profile not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSourceEmpty     = errors.New("music source returned no listening data")
)

// Service defines taste profile operations.
type Service interface {
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	SyncProfile(ctx context.Context, userID int64) (*Profile, error)
}

type service struct {
	repo   Repository
	source MusicSource
}

// NewService creates a new taste service.
func NewService(repo Repository, source MusicSource) Service {
	return &service{repo: repo, source: source}
}

// UpdateProfile replaces the user's profile with the normalized request
// lists. Normalizing here means reads and scoring can trust the stored
// tokens as-is.
func (s *service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	profile := &Profile{
		UserID:  userID,
		Genres:  NormalizeTokens(req.Genres),
		Artists: NormalizeTokens(req.Artists),
		Songs:   NormalizeTokens(req.Songs),
	}

	return s.repo.Upsert(ctx, profile)
}

// GetProfile returns the user's taste profile.
func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// SyncProfile pulls listening data from the configured music provider
// and stores it as the user's profile.
func (s *service) SyncProfile(ctx context.Context, userID int64) (*Profile, error) {
	listening, err := s.source.Fetch(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listening data: %w", err)
	}

	profile := &Profile{
		UserID:  userID,
		Genres:  NormalizeTokens(listening.Genres),
		Artists: NormalizeTokens(listening.Artists),
		Songs:   NormalizeTokens(listening.Songs),
	}
	if profile.IsEmpty() {
		return nil, ErrSourceEmpty
	}

	return s.repo.Upsert(ctx, profile)
}
