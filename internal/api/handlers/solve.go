package handlers

import (
	"context"
	"dropoff-route-service/internal/adapters/instancefile"
	"dropoff-route-service/internal/api/dto"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/platform/metrics"
	"dropoff-route-service/internal/platform/obs"
	"dropoff-route-service/internal/services"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// MaxInstanceBytes caps the request body of POST /solve.
const MaxInstanceBytes = 4 << 20

// SolveHandler solves an instance posted in the text input format.
type SolveHandler struct {
	Solver   services.Solver
	Defaults services.SolveOptions
	// MaxTimeLimit caps the per-request search budget; zero means no cap.
	MaxTimeLimit time.Duration
}

// Solve accepts optional query parameters name, seeds and time_limit (seconds).
func (h *SolveHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodPost) {
		return
	}

	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = "request"
	}

	opts := h.Defaults
	if v := q.Get("seeds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 1000 {
			writeError(w, r, http.StatusBadRequest, "seeds must be between 0 and 1000")
			return
		}
		opts.Seeds = n
	}
	if v := q.Get("time_limit"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			writeError(w, r, http.StatusBadRequest, "time_limit must be a positive number of seconds")
			return
		}
		opts.TimeLimit = time.Duration(secs * float64(time.Second))
	}
	if h.MaxTimeLimit > 0 && (opts.TimeLimit <= 0 || opts.TimeLimit > h.MaxTimeLimit) {
		opts.TimeLimit = h.MaxTimeLimit
	}
	opts.Logger = obs.Logger(r.Context()).WithField("instance", name)

	body := http.MaxBytesReader(w, r.Body, MaxInstanceBytes)
	defer r.Body.Close()

	in, err := instancefile.Parse(body, name)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, "instance too large")
		default:
			writeError(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}

	start := time.Now()
	sol, err := h.solve(r.Context(), in, opts)
	if err != nil {
		metrics.ObserveSolve(name, "error", time.Since(start), 0, false)
		status := http.StatusInternalServerError
		msg := "internal server error"
		switch {
		case errors.Is(err, domain.ErrInstanceTooLarge):
			status, msg = http.StatusUnprocessableEntity, err.Error()
		case errors.Is(err, domain.ErrNoSolutionFound), errors.Is(err, context.DeadlineExceeded):
			status, msg = http.StatusServiceUnavailable, "no solution found within the time limit"
		}
		opts.Logger.WithError(err).Error("solve failed")
		writeError(w, r, status, msg)
		return
	}

	baseline := services.BaselineCost(in)
	damage := services.Damage(sol.Cost, baseline)
	metrics.ObserveSolve(name, sol.Status.String(), time.Since(start), damage, false)

	opts.Logger.WithFields(log.Fields{
		"status": sol.Status,
		"cost":   sol.Cost,
	}).Info("solve request finished")

	writeJSON(w, r, http.StatusOK, solutionResponse(in, sol, baseline, damage))
}

func (h *SolveHandler) solve(ctx context.Context, in *domain.Instance, opts services.SolveOptions) (*domain.Solution, error) {
	sol, err := h.Solver.Solve(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	if err := domain.Validate(in.Graph, in.Depot, in.Homes, sol.Route, sol.Dropoffs); err != nil {
		return nil, fmt.Errorf("solve handler: %w", err)
	}
	return sol, nil
}

func solutionResponse(in *domain.Instance, sol *domain.Solution, baseline, damage float64) dto.SolutionResponse {
	res := dto.SolutionResponse{
		Instance:   in.Name,
		Status:     sol.Status.String(),
		Cost:       sol.Cost,
		DriveCost:  sol.DriveCost,
		WalkCost:   sol.WalkCost,
		LowerBound: sol.LowerBound,
		Baseline:   baseline,
		Damage:     damage,
		Route:      in.RouteNames(sol.Route),
		Dropoffs:   make([]dto.DropoffResponse, 0, len(sol.Dropoffs)),
	}
	for _, stop := range sol.DropoffOrder() {
		res.Dropoffs = append(res.Dropoffs, dto.DropoffResponse{
			Location: in.LocationName(stop),
			Homes:    in.RouteNames(domain.Route(sol.Dropoffs[stop])),
		})
	}
	return res
}
