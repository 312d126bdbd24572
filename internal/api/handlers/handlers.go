package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/inventory-refresher/internal/api/middleware"
	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/refresher"
	"github.com/dvloznov/inventory-refresher/internal/runs"
)

// ItemsRunner runs the items pipeline. *refresher.ItemRefresher satisfies it.
type ItemsRunner interface {
	Refresh(ctx context.Context) (refresher.ItemSummary, error)
}

// PORunner runs the purchase-order pipeline. *refresher.PORefresher satisfies it.
type PORunner interface {
	Refresh(ctx context.Context) (refresher.POSummary, error)
}

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RefreshHandler handles the refresh trigger endpoints.
type RefreshHandler struct {
	items ItemsRunner
	po    PORunner
	log   zerolog.Logger
}

// NewRefreshHandler creates a refresh handler. A nil runner marks its
// pipeline as not configured.
func NewRefreshHandler(items ItemsRunner, po PORunner, log zerolog.Logger) *RefreshHandler {
	return &RefreshHandler{
		items: items,
		po:    po,
		log:   log,
	}
}

type itemsResponse struct {
	Success bool `json:"success"`
	refresher.ItemSummary
}

type poResponse struct {
	Success bool `json:"success"`
	refresher.POSummary
}

type failureResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RefreshItems handles GET|POST /refresh/items
func (h *RefreshHandler) RefreshItems(w http.ResponseWriter, r *http.Request) {
	if h.items == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Items pipeline not configured")
		return
	}

	// The run must not be cut short between delete and insert when the
	// caller goes away.
	ctx := context.WithoutCancel(r.Context())

	summary, err := h.items.Refresh(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Item refresh failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, failureResponse{
			Error:   "Item refresh failed",
			Message: err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, itemsResponse{Success: true, ItemSummary: summary})
}

// RefreshPO handles GET|POST /refresh/po
func (h *RefreshHandler) RefreshPO(w http.ResponseWriter, r *http.Request) {
	if h.po == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "PO pipeline not configured")
		return
	}

	ctx := context.WithoutCancel(r.Context())

	summary, err := h.po.Refresh(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("PO refresh failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, failureResponse{
			Error:   "PO refresh failed",
			Message: err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, poResponse{Success: true, POSummary: summary})
}

// RunsHandler exposes recorded runs.
type RunsHandler struct {
	store runs.Reader
	log   zerolog.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(store runs.Reader, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{store: store, log: log}
}

// ListRuns handles GET /runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := runs.Filter{
		Pipeline: q.Get("pipeline"),
		Phase:    runs.Phase(q.Get("phase")),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// GetRun handles GET /runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.Get(r.Context(), id)
	if errors.Is(err, runs.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}
