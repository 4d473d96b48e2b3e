// internal/matching/dto.go
package matching

// DTOs for API requests/responses

// SwipeRequest is the body of POST /api/v1/matching/swipes. Liked is a
// pointer so "false" survives the required check.
type SwipeRequest struct {
	TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
	Liked        *bool `json:"liked" validate:"required"`
}

// SuggestionsResponse wraps the ranked slice so clients get the count
// alongside it.
type SuggestionsResponse struct {
	Suggestions []*Suggestion `json:"suggestions"`
	Count       int           `json:"count"`
}

// MatchesResponse wraps the caller's mutual matches.
type MatchesResponse struct {
	Matches []*MatchInfo `json:"matches"`
	Count   int          `json:"count"`
}
