package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusguessr/scoreserver/internal/domain"
	"github.com/campusguessr/scoreserver/internal/websocket"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) SubmitScore(ctx context.Context, sub domain.ScoreSubmission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockService) GetLeaderboard(ctx context.Context, instance string, tf domain.Timeframe, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, instance, tf, limit)
	entries, _ := args.Get(0).([]domain.LeaderboardEntry)
	return entries, args.Error(1)
}

func testHandler(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := websocket.NewHub(logger)
	return NewHandler(svc, hub, logger).Router()
}

func TestSubmitScore_OK(t *testing.T) {
	svc := new(mockService)
	svc.On("SubmitScore", mock.Anything, mock.MatchedBy(func(sub domain.ScoreSubmission) bool {
		return sub.Name == "Alex" && sub.Score != nil && *sub.Score == 4200 && sub.GameInstance == "public"
	})).Return(nil).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores",
		strings.NewReader(`{"name":"Alex","score":4200,"gameInstance":"public"}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Score submitted successfully", resp["message"])

	svc.AssertExpectations(t)
}

func TestSubmitScore_MethodNotAllowed(t *testing.T) {
	router := testHandler(new(mockService))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scores", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSubmitScore_MalformedBody(t *testing.T) {
	router := testHandler(new(mockService))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitScore_ValidationFailure(t *testing.T) {
	svc := new(mockService)
	svc.On("SubmitScore", mock.Anything, mock.Anything).Return(domain.ErrInvalidName).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores",
		strings.NewReader(`{"name":"Bad@Actor","score":100}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, domain.ErrInvalidName.Error(), resp["error"])
}

func TestSubmitScore_MissingField(t *testing.T) {
	svc := new(mockService)
	svc.On("SubmitScore", mock.Anything, mock.MatchedBy(func(sub domain.ScoreSubmission) bool {
		return sub.Name == "" && sub.Score != nil
	})).Return(domain.ErrMissingFields).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", strings.NewReader(`{"score":100}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestSubmitScore_InstanceNotFound(t *testing.T) {
	svc := new(mockService)
	svc.On("SubmitScore", mock.Anything, mock.Anything).Return(domain.ErrInstanceNotFound).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores",
		strings.NewReader(`{"name":"Sam","score":100,"gameInstance":"ghost"}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitScore_StoreFailureIsGeneric(t *testing.T) {
	svc := new(mockService)
	svc.On("SubmitScore", mock.Anything, mock.Anything).Return(io.ErrUnexpectedEOF).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores",
		strings.NewReader(`{"name":"Sam","score":100}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, domain.ErrInternalError.Error(), resp["error"])
}

func TestGetLeaderboard_DefaultsToAllTime(t *testing.T) {
	svc := new(mockService)
	entries := []domain.LeaderboardEntry{
		{Name: "Alex", Score: 4200, Date: time.Date(2026, time.August, 26, 17, 0, 0, 0, time.UTC)},
		{Name: "Sam", Score: 100, Date: time.Date(2026, time.August, 26, 18, 0, 0, 0, time.UTC)},
	}
	svc.On("GetLeaderboard", mock.Anything, "", domain.TimeframeAll, 0).Return(entries, nil).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	require.Equal(t, "Alex", resp[0]["name"])
	require.Equal(t, float64(4200), resp[0]["score"])
	require.NotEmpty(t, resp[0]["date"])

	svc.AssertExpectations(t)
}

func TestGetLeaderboard_PassesQueryParams(t *testing.T) {
	svc := new(mockService)
	svc.On("GetLeaderboard", mock.Anything, "orientation", domain.TimeframeWeekly, 10).
		Return([]domain.LeaderboardEntry{}, nil).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?gameInstance=orientation&timeframe=weekly&limit=10", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetLeaderboard_InvalidTimeframe(t *testing.T) {
	router := testHandler(new(mockService))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?timeframe=hourly", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDailyLeaderboard(t *testing.T) {
	svc := new(mockService)
	svc.On("GetLeaderboard", mock.Anything, "", domain.TimeframeDaily, 0).
		Return([]domain.LeaderboardEntry{}, nil).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/daily", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]\n", w.Body.String())
	svc.AssertExpectations(t)
}

func TestGetWeeklyLeaderboard_NotFoundInstance(t *testing.T) {
	svc := new(mockService)
	svc.On("GetLeaderboard", mock.Anything, "ghost", domain.TimeframeWeekly, 0).
		Return([]domain.LeaderboardEntry(nil), domain.ErrInstanceNotFound).Once()

	router := testHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/weekly?gameInstance=ghost", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketStats(t *testing.T) {
	router := testHandler(new(mockService))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws/stats?gameInstance=public", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, float64(0), resp["total_connections"])
	require.Equal(t, "public", resp["instance"])
	require.Equal(t, float64(0), resp["subscribers"])

	// Without an instance the per-instance fields are omitted
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ws/stats", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotContains(t, resp, "subscribers")
}

func TestHealthEndpoints(t *testing.T) {
	router := testHandler(new(mockService))

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}
