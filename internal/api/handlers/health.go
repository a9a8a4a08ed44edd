package handlers

import (
	"context"
	"dropoff-route-service/internal/api/dto"
	"dropoff-route-service/internal/ports"
	"net/http"
	"time"
)

// healthKey is looked up to reach the store; it is never written.
const healthKey = "_health"

// HealthHandler reports liveness together with bound store reachability.
type HealthHandler struct {
	Store ports.BoundStore
	// Backend names the store driver in responses.
	Backend string
	// Timeout bounds the store round trip; zero means two seconds.
	Timeout time.Duration
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	res := dto.HealthResponse{Status: "ok", Store: h.Backend}
	if _, err := h.Store.Get(ctx, healthKey); err != nil {
		res.Status, res.Error = "degraded", err.Error()
		writeJSON(w, r, http.StatusServiceUnavailable, res)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
