package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campusguessr/scoreserver/internal/domain"
	"github.com/campusguessr/scoreserver/internal/websocket"
)

// Service is the business logic consumed by the HTTP layer
type Service interface {
	SubmitScore(ctx context.Context, sub domain.ScoreSubmission) error
	GetLeaderboard(ctx context.Context, instance string, tf domain.Timeframe, limit int) ([]domain.LeaderboardEntry, error)
}

// Handler provides HTTP handlers for the score API
type Handler struct {
	service Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service Service, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// Router creates and configures the HTTP router. Requests with a
// non-matching method on a routed path get a 405 from chi.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scores", h.SubmitScore)

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.GetLeaderboard)
			r.Get("/daily", h.GetDailyLeaderboard)
			r.Get("/weekly", h.GetWeeklyLeaderboard)
		})

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// serviceError maps a service failure onto an HTTP response. Validation
// failures carry their specific message; store failures get a generic
// body with the detail logged for operators.
func (h *Handler) serviceError(w http.ResponseWriter, err error, op string) {
	switch {
	case domain.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics, optionally
// scoped to one instance's subscribers via ?gameInstance=
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	}
	if instance := r.URL.Query().Get("gameInstance"); instance != "" {
		stats["instance"] = instance
		stats["subscribers"] = h.hub.GetSubscriberCount(instance)
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// SubmitScore handles score submission
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var sub domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.SubmitScore(r.Context(), sub); err != nil {
		h.serviceError(w, err, "submit score")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Score submitted successfully"})
}

// GetLeaderboard returns the leaderboard for a caller-selected timeframe
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	tf, err := domain.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.leaderboard(w, r, tf)
}

// GetDailyLeaderboard returns the leaderboard for the current daily window
func (h *Handler) GetDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, domain.TimeframeDaily)
}

// GetWeeklyLeaderboard returns the leaderboard for the current weekly window
func (h *Handler) GetWeeklyLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, domain.TimeframeWeekly)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request, tf domain.Timeframe) {
	instance := r.URL.Query().Get("gameInstance")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.service.GetLeaderboard(r.Context(), instance, tf, limit)
	if err != nil {
		h.serviceError(w, err, "get leaderboard")
		return
	}

	h.writeJSON(w, http.StatusOK, entries)
}
