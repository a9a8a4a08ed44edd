package ports

import (
	"context"

	"dropoff-route-service/internal/domain"
)

// Port: persistence of best known bounds, keyed by instance name.
type BoundStore interface {
	// Return the stored bound, or nil when the instance was never solved.
	Get(ctx context.Context, instance string) (*domain.Bound, error)
	// Store b if it beats the stored bound (see domain.ShouldReplace) in one
	// atomic step. Reports whether the stored bound changed.
	Upsert(ctx context.Context, b domain.Bound) (bool, error)
	// Clear the optimal flag of a stored bound, keeping its cost.
	MarkSuboptimal(ctx context.Context, instance string) error
	// Return every stored bound ordered by instance name.
	List(ctx context.Context) ([]domain.Bound, error)
	Close() error
}
