package services

import (
	"context"
	"dropoff-route-service/internal/ports"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SolveBatch solves the named instances with at most parallel solves at a
// time. Per-instance failures are recorded on the report and do not stop the
// batch; only cancellation of ctx does.
func SolveBatch(
	ctx context.Context,
	names []string,
	parallel int,
	base SolveInstanceRequest,
	repo ports.InstanceRepository,
	store ports.BoundStore,
) ([]*InstanceReport, error) {
	if parallel < 1 {
		parallel = 1
	}

	reports := make([]*InstanceReport, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req := base
			req.Name = name
			if base.Solve.Rand != nil {
				// rand.Rand is not safe for concurrent use.
				mu.Lock()
				req.Solve.Rand = newRand(base.Solve.Rand.Int63())
				mu.Unlock()
			}

			rep, err := SolveInstance(gctx, req, repo, store)
			if err != nil {
				rep = &InstanceReport{Instance: name, Err: err}
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, fmt.Errorf("solve batch: %w", err)
	}
	return reports, nil
}
