package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dvloznov/inventory-refresher/internal/api/handlers"
	"github.com/dvloznov/inventory-refresher/internal/api/middleware"
	"github.com/dvloznov/inventory-refresher/internal/metrics"
	"github.com/dvloznov/inventory-refresher/internal/runs"
)

// Deps holds what the router needs. Items and PO may be nil when their
// pipeline is not configured.
type Deps struct {
	Items         handlers.ItemsRunner
	PO            handlers.PORunner
	Runs          runs.Reader
	Metrics       *metrics.Metrics
	TriggerSecret string
	Logger        zerolog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", handlers.HealthHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	refresh := handlers.NewRefreshHandler(d.Items, d.PO, d.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.TriggerAuth(d.TriggerSecret))

		r.Get("/refresh/items", refresh.RefreshItems)
		r.Post("/refresh/items", refresh.RefreshItems)
		r.Get("/refresh/po", refresh.RefreshPO)
		r.Post("/refresh/po", refresh.RefreshPO)

		if d.Runs != nil {
			runsHandler := handlers.NewRunsHandler(d.Runs, d.Logger)
			r.Get("/runs", runsHandler.ListRuns)
			r.Get("/runs/{id}", runsHandler.GetRun)
		}
	})

	return r
}
