package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Solver computes a route and dropoff assignment for one instance.
type Solver interface {
	Solve(ctx context.Context, in *domain.Instance, opts SolveOptions) (*domain.Solution, error)
}

// SolveOptions are the run parameters shared by every solver.
type SolveOptions struct {
	// Number of random warm-start cycles.
	Seeds int
	// Wall-clock budget of the exact search; zero or negative is unbounded.
	TimeLimit time.Duration
	// MaxNodes caps branch-and-bound nodes; zero is unbounded.
	MaxNodes int
	// Previous is a route from an earlier run used as an extra seed.
	Previous domain.Route
	Rand     *rand.Rand
	Verbose  bool
	Logger   logrus.FieldLogger
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func (o SolveOptions) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func (o SolveOptions) warmStart() WarmStartOptions {
	return WarmStartOptions{
		Seeds:    o.Seeds,
		Previous: o.Previous,
		Rand:     o.Rand,
		Logger:   o.logger(),
	}
}

// SolverKind selects a Solver implementation.
type SolverKind int

const (
	SolverExact SolverKind = iota
	SolverBruteForce
	SolverWarmStart
)

func (k SolverKind) String() string {
	switch k {
	case SolverExact:
		return "exact"
	case SolverBruteForce:
		return "brute-force"
	case SolverWarmStart:
		return "warm-start"
	default:
		return fmt.Sprintf("solver(%d)", int(k))
	}
}

// ParseSolverKind maps configuration text to a SolverKind.
func ParseSolverKind(s string) (SolverKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact", "mip":
		return SolverExact, nil
	case "brute-force", "bruteforce", "brute":
		return SolverBruteForce, nil
	case "warm-start", "warmstart", "heuristic":
		return SolverWarmStart, nil
	default:
		return 0, fmt.Errorf("parse solver kind: unknown solver %q", s)
	}
}

func NewSolver(kind SolverKind) (Solver, error) {
	switch kind {
	case SolverExact:
		return ExactSolver{}, nil
	case SolverBruteForce:
		return BruteForceSolver{}, nil
	case SolverWarmStart:
		return WarmStartSolver{}, nil
	default:
		return nil, fmt.Errorf("new solver: unsupported kind %s", kind)
	}
}

// BruteForceSolver enumerates arc subsets; tiny instances only.
type BruteForceSolver struct{}

func (BruteForceSolver) Solve(ctx context.Context, in *domain.Instance, _ SolveOptions) (*domain.Solution, error) {
	table, err := NewDistanceTable(in.Graph)
	if err != nil {
		return nil, fmt.Errorf("brute force solver: %w", err)
	}
	return BruteForce(ctx, in, table)
}

// WarmStartSolver returns the best heuristic candidate without optimising.
type WarmStartSolver struct{}

func (WarmStartSolver) Solve(_ context.Context, in *domain.Instance, opts SolveOptions) (*domain.Solution, error) {
	table, err := NewDistanceTable(in.Graph)
	if err != nil {
		return nil, fmt.Errorf("warm start solver: %w", err)
	}
	sol, err := WarmStart(in, table, opts.warmStart())
	if err != nil {
		return nil, err
	}
	sol.LowerBound = 0
	return sol, nil
}
