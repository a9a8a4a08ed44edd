package api

import (
	"dropoff-route-service/internal/api/handlers"
	"dropoff-route-service/internal/platform/metrics"
	"dropoff-route-service/internal/ports"
	"dropoff-route-service/internal/services"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface needs. StoreDriver only names
// the store backend on /health.
type Deps struct {
	Store        ports.BoundStore
	StoreDriver  string
	Solver       services.Solver
	Defaults     services.SolveOptions
	MaxTimeLimit time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps Deps) http.Handler {
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Store: deps.Store, Backend: deps.StoreDriver}
	boundHandler := &handlers.BoundHandler{Store: deps.Store}
	solveHandler := &handlers.SolveHandler{
		Solver:       deps.Solver,
		Defaults:     deps.Defaults,
		MaxTimeLimit: deps.MaxTimeLimit,
	}

	mux.HandleFunc("/health", healthHandler.Check)
	mux.HandleFunc("/bounds", boundHandler.List)
	mux.HandleFunc("/solve", solveHandler.Solve)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return loggingMiddleware(mux)
}
