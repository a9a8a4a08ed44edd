package handlers

import (
	"dropoff-route-service/internal/api/dto"
	"dropoff-route-service/internal/platform/obs"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// allowOnly answers 405 and reports false unless r uses method.
func allowOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// writeJSON sends v as an uncacheable JSON body; solve results depend on the
// time budget of the request.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger(r.Context()).WithFields(log.Fields{
			"path":   r.URL.Path,
			"status": status,
		}).WithError(err).Warn("response encode failed")
	}
}

// writeError echoes the request id so clients can quote it.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	id, _ := r.Context().Value(obs.RequestIDKey).(string)
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg, RequestID: id})
}

// internalError logs err and answers 500 without exposing it.
func internalError(w http.ResponseWriter, r *http.Request, err error, what string) {
	obs.Logger(r.Context()).WithError(err).Error(what)
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}
