package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/platform/obs"
	"dropoff-route-service/internal/ports"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SolveInstanceRequest configures one persisted solve.
type SolveInstanceRequest struct {
	Name   string
	Solver Solver
	Solve  SolveOptions
	// Seed the search with the previously written solution.
	ReusePrevious bool
	// Skip instances whose stored bound is already optimal.
	SkipOptimal bool
	// Write the solution even when it did not improve the stored bound.
	ForceWrite bool
}

// InstanceReport summarises one persisted solve.
type InstanceReport struct {
	Instance string
	Solution *domain.Solution
	// Stored is the bound found before solving, if any.
	Stored   *domain.Bound
	Skipped  bool
	Improved bool
	Written  bool
	Baseline float64
	Damage   float64
	Duration time.Duration
	Err      error
}

// SolveInstance loads an instance, solves it, validates the result, updates
// the bound store and writes the solution file when it improved.
//
// The store is only touched with a validated solution. A NotEulerian outcome
// clears the stored optimal flag so later runs retry the instance.
func SolveInstance(
	ctx context.Context,
	req SolveInstanceRequest,
	repo ports.InstanceRepository,
	store ports.BoundStore,
) (report *InstanceReport, err error) {
	defer obs.Time(ctx, "solve instance "+req.Name)(&err)

	if req.Solver == nil {
		return nil, errors.New("solve instance: solver is nil")
	}

	start := time.Now()
	report = &InstanceReport{Instance: req.Name}
	defer func() {
		if report != nil {
			report.Duration = time.Since(start)
		}
	}()

	stored, err := store.Get(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("solve instance %s: get bound: %w", req.Name, err)
	}
	report.Stored = stored

	if req.SkipOptimal && stored != nil && stored.Optimal {
		report.Skipped = true
		return report, nil
	}

	in, err := repo.LoadInstance(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("solve instance %s: load: %w", req.Name, err)
	}

	opts := req.Solve
	log := opts.logger().WithField("instance", req.Name)
	opts.Logger = log

	if req.ReusePrevious {
		prev, err := repo.LoadSolution(ctx, in)
		switch {
		case err != nil:
			log.WithError(err).Warn("solve instance: previous solution ignored")
		case prev != nil:
			opts.Previous = prev.Route
		}
	}

	sol, err := req.Solver.Solve(ctx, in, opts)
	if errors.Is(err, domain.ErrNotEulerian) && stored != nil {
		if merr := store.MarkSuboptimal(ctx, req.Name); merr != nil {
			log.WithError(merr).Error("solve instance: mark suboptimal failed")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("solve instance %s: %w", req.Name, err)
	}

	if err := domain.Validate(in.Graph, in.Depot, in.Homes, sol.Route, sol.Dropoffs); err != nil {
		return nil, fmt.Errorf("solve instance %s: %w", req.Name, err)
	}
	report.Solution = sol
	report.Baseline = BaselineCost(in)
	report.Damage = Damage(sol.Cost, report.Baseline)

	improved, err := store.Upsert(ctx, domain.Bound{
		Instance:  req.Name,
		Cost:      sol.Cost,
		Optimal:   sol.Optimal(),
		UpdatedAt: time.Now().UTC(),
		RunID:     obs.RunID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("solve instance %s: upsert bound: %w", req.Name, err)
	}
	report.Improved = improved

	if stored != nil && stored.Optimal && domain.Improves(sol.Cost, stored.Cost) {
		log.WithField("stored", stored.Cost).Warn("solve instance: beat a bound recorded as optimal")
	}

	if improved || req.ForceWrite {
		if err := repo.SaveSolution(ctx, in, sol); err != nil {
			return nil, fmt.Errorf("solve instance %s: save solution: %w", req.Name, err)
		}
		report.Written = true
	}

	log.WithFields(logrus.Fields{
		"cost":     sol.Cost,
		"status":   sol.Status,
		"improved": improved,
		"damage":   fmt.Sprintf("%.2f%%", report.Damage),
	}).Info("solve instance: done")

	return report, nil
}
