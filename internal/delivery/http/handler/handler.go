package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/delivery/http/response"
	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

// Refresher is the part of the orchestrator the handlers drive.
type Refresher interface {
	Refresh(ctx context.Context) entity.Snapshot
	EnsureFresh(ctx context.Context, maxAge time.Duration) entity.Stats
}

// StoreStatus exposes the store reads and health the handlers need.
type StoreStatus interface {
	ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error)
	Ping(ctx context.Context) error
	Available() bool
	Backend() string
}

type Handler struct {
	refresher Refresher
	store     StoreStatus
	staleness time.Duration
	logger    *zap.Logger
}

func NewHandler(refresher Refresher, store StoreStatus, staleness time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		refresher: refresher,
		store:     store,
		staleness: staleness,
		logger:    logger,
	}
}

// HandleGetStats serves the history (oldest first) and events (newest first), refreshing
// first when the data is stale.
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.refresher.EnsureFresh(r.Context(), h.staleness)
	if stats.History == nil {
		stats.History = []entity.Snapshot{}
	}
	if stats.Events == nil {
		stats.Events = []entity.Event{}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// HandleRefresh runs a refresh and returns its snapshot with the current event log.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	latest := h.refresher.Refresh(r.Context())
	events, err := h.store.ListEvents(r.Context(), 0, repository.OrderDesc)
	if err != nil || events == nil {
		events = []entity.Event{}
	}
	h.writeJSON(w, http.StatusOK, response.RefreshResponse{Latest: latest, Events: events})
}

// HandleHealthCheck always answers 200. Store reachability is reported in the body.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Store: "available", Backend: h.store.Backend()}
	if err := h.store.Ping(ctx); err != nil {
		resp.Store = "unavailable"
		h.logger.Debug("health check: store unavailable", zap.String("backend", resp.Backend), zap.Error(err))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

// HandleNotFound answers unknown routes with a JSON error.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSONError(w, "Not found", http.StatusNotFound)
}

// HandleMethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
}
