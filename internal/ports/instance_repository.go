package ports

import (
	"context"

	"dropoff-route-service/internal/domain"
)

// Port: a boundary for loading instances and storing their solutions.
type InstanceRepository interface {
	// Names of all available instances.
	ListInstances(ctx context.Context) ([]string, error)
	LoadInstance(ctx context.Context, name string) (*domain.Instance, error)
	// Return the previously written route and assignment, or nil when none exists.
	LoadSolution(ctx context.Context, in *domain.Instance) (*domain.Solution, error)
	SaveSolution(ctx context.Context, in *domain.Instance, s *domain.Solution) error
}
