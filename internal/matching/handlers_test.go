package matching

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duetapp/duet-backend/internal/auth"
	"github.com/duetapp/duet-backend/internal/common/utils"
)

const testJWTSecret = "matching-handler-test-secret"

type handlerFixture struct {
	repo   *fakeRepository
	router *mux.Router
	auth   *auth.Middleware
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	repo := newFakeRepository()
	queue := newTestQueue(t, repo)
	engine := NewSwipeEngine(repo, queue, nil, zap.NewNop())
	service := NewService(queue, engine)

	authMiddleware := auth.NewMiddleware(testJWTSecret)
	handler := NewHandler(service, HandlerConfig{DefaultCount: 10, MaxCount: 50})

	router := mux.NewRouter()
	RegisterRoutes(router, handler, nil, authMiddleware)

	return &handlerFixture{repo: repo, router: router, auth: authMiddleware}
}

func (f *handlerFixture) request(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID > 0 {
		token, err := f.auth.MintToken(userID, "tester", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var envelope utils.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestHandlerAuthRequired(t *testing.T) {
	fixture := newHandlerFixture(t)

	recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/suggestions", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHandlerGetSuggestions(t *testing.T) {
	fixture := newHandlerFixture(t)
	seedMatchingPool(fixture.repo, 5)

	recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/suggestions?count=3", nil, 1)
	require.Equal(t, http.StatusOK, recorder.Code)

	envelope := decodeEnvelope(t, recorder)
	assert.True(t, envelope.Success)

	payload, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var response SuggestionsResponse
	require.NoError(t, json.Unmarshal(payload, &response))
	assert.Equal(t, 3, response.Count)
	assert.Len(t, response.Suggestions, 3)
}

func TestHandlerGetSuggestionsStatuses(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.repo.seedUser(1, "man", "both")

	t.Run("missing profile is 404", func(t *testing.T) {
		recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/suggestions", nil, 1)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("bad count is 400", func(t *testing.T) {
		recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/suggestions?count=abc", nil, 1)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("empty queue is a valid 200", func(t *testing.T) {
		fixture.repo.seedProfile(1, []string{"pop"}, nil, nil)

		recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/suggestions", nil, 1)
		require.Equal(t, http.StatusOK, recorder.Code)

		envelope := decodeEnvelope(t, recorder)
		payload, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var response SuggestionsResponse
		require.NoError(t, json.Unmarshal(payload, &response))
		assert.Zero(t, response.Count)
	})
}

func TestHandlerSwipe(t *testing.T) {
	liked := true

	t.Run("created", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		recorder := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 2, Liked: &liked}, 1)
		require.Equal(t, http.StatusCreated, recorder.Code)

		envelope := decodeEnvelope(t, recorder)
		assert.True(t, envelope.Success)
	})

	t.Run("duplicate is 409", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		first := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 2, Liked: &liked}, 1)
		require.Equal(t, http.StatusCreated, first.Code)

		second := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 2, Liked: &liked}, 1)
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("self swipe is 400", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		recorder := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 1, Liked: &liked}, 1)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unknown target is 404", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		recorder := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 42, Liked: &liked}, 1)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("missing liked field is 400", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		recorder := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			map[string]any{"target_user_id": 2}, 1)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("pass decision survives the required check", func(t *testing.T) {
		fixture := newHandlerFixture(t)
		seedSwipePair(fixture.repo)

		passed := false
		recorder := fixture.request(t, http.MethodPost, "/api/v1/matching/swipes",
			SwipeRequest{TargetUserID: 2, Liked: &passed}, 1)
		assert.Equal(t, http.StatusCreated, recorder.Code)
	})
}

func TestHandlerGetMatchesAndStats(t *testing.T) {
	fixture := newHandlerFixture(t)
	seedSwipePair(fixture.repo)

	liked := true
	require.Equal(t, http.StatusCreated, fixture.request(t, http.MethodPost,
		"/api/v1/matching/swipes", SwipeRequest{TargetUserID: 2, Liked: &liked}, 1).Code)
	require.Equal(t, http.StatusCreated, fixture.request(t, http.MethodPost,
		"/api/v1/matching/swipes", SwipeRequest{TargetUserID: 1, Liked: &liked}, 2).Code)

	t.Run("matches", func(t *testing.T) {
		recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/matches", nil, 1)
		require.Equal(t, http.StatusOK, recorder.Code)

		envelope := decodeEnvelope(t, recorder)
		payload, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var response MatchesResponse
		require.NoError(t, json.Unmarshal(payload, &response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, int64(2), response.Matches[0].UserID)
	})

	t.Run("stats", func(t *testing.T) {
		recorder := fixture.request(t, http.MethodGet, "/api/v1/matching/stats", nil, 1)
		require.Equal(t, http.StatusOK, recorder.Code)

		envelope := decodeEnvelope(t, recorder)
		payload, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var stats SwipeStats
		require.NoError(t, json.Unmarshal(payload, &stats))
		assert.Equal(t, 1, stats.TotalSwipes)
		assert.Equal(t, 1, stats.Likes)
		assert.Equal(t, 1, stats.Matches)
		assert.InDelta(t, 1.0, stats.LikeRate, 1e-9)
	})
}
