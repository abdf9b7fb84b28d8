package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{"status": "ok"}
	writeJSON(w, r, http.StatusOK, res)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandler reports whether the solution store is reachable.
type ReadyHandler struct {
	Store   Pinger
	Timeout time.Duration
}

func (h *ReadyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	if err := h.Store.Ping(ctx); err != nil {
		writeServiceError(w, r, "ready", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
