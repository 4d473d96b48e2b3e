// internal/matching/handlers.go
package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/duetapp/duet-backend/internal/auth"
	"github.com/duetapp/duet-backend/internal/common/utils"
)

// HandlerConfig bounds suggestion requests.
type HandlerConfig struct {
	DefaultCount int
	MaxCount     int
}

type Handler struct {
	service Service
	cfg     HandlerConfig
}

func NewHandler(service Service, cfg HandlerConfig) *Handler {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 10
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 50
	}
	return &Handler{service: service, cfg: cfg}
}

// GetSuggestions returns the caller's ranked suggestion slice. An empty
// slice is a valid outcome: no more candidates.
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count := h.cfg.DefaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid count parameter")
			return
		}
		count = parsed
	}
	if count > h.cfg.MaxCount {
		count = h.cfg.MaxCount
	}

	suggestions, err := h.service.GetSuggestions(r.Context(), userID, count)
	if err != nil {
		h.respondError(w, err, "Failed to get suggestions")
		return
	}

	utils.SuccessResponse(w, &SuggestionsResponse{
		Suggestions: suggestions,
		Count:       len(suggestions),
	}, http.StatusOK)
}

// Swipe records a like or pass on the target user.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Swipe(r.Context(), userID, req.TargetUserID, *req.Liked)
	if err != nil {
		h.respondError(w, err, "Failed to record swipe")
		return
	}

	utils.SuccessResponse(w, result, http.StatusCreated)
}

// GetMatches lists the caller's mutual matches.
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	matches, err := h.service.GetMatches(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "Failed to get matches")
		return
	}

	utils.SuccessResponse(w, &MatchesResponse{
		Matches: matches,
		Count:   len(matches),
	}, http.StatusOK)
}

// GetStats returns the caller's swipe statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "Failed to get swipe stats")
		return
	}

	utils.SuccessResponse(w, stats, http.StatusOK)
}

// respondError maps domain sentinels to HTTP statuses. A duplicate
// swipe is a 409 so clients can tell it apart from validation errors.
func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSelfSwipe), errors.Is(err, ErrInvalidCount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadySwiped):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
