package api

import (
	"net/http"
	"time"

	"vrp-solution-service/internal/api/handlers"
	"vrp-solution-service/internal/platform/obs"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	RateRPS      float64
	RateBurst    int
	ReadyTimeout time.Duration
}

// Service is what the router needs from the application layer.
type Service interface {
	handlers.SolutionService
	handlers.Pinger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(svc Service, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	solutions := &handlers.SolutionHandler{Service: svc}
	ready := &handlers.ReadyHandler{Store: svc, Timeout: cfg.ReadyTimeout}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /ready", ready.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("PUT /mark_solution_obsolete/{schema_id}", solutions.MarkObsolete)
	mux.HandleFunc("GET /has_actual_solution/{schema_id}", solutions.HasActual)
	mux.HandleFunc("POST /solve", solutions.Solve)
	mux.HandleFunc("GET /solution/{schema_id}", solutions.Get)

	// logging wraps the limiter so rejected requests are still logged and counted
	var h http.Handler = mux
	h = rateLimitMiddleware(cfg.RateRPS, cfg.RateBurst)(h)
	h = loggingMiddleware(h)
	h = requestIDMiddleware(h)

	return h
}
