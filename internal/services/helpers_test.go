package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var x = domain.NoEdge

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("L%d", i)
	}
	return out
}

// newInstance builds an instance over locations L0..Ln-1 with depot L0.
func newInstance(t *testing.T, adj [][]float64, homes ...int) *domain.Instance {
	t.Helper()
	locs := names(len(adj))
	hs := make([]string, len(homes))
	for i, h := range homes {
		hs[i] = locs[h]
	}
	in, err := domain.NewInstance(t.Name(), locs, hs, locs[0], adj)
	require.NoError(t, err)
	return in
}

func squareAdj(w float64) [][]float64 {
	return [][]float64{
		{0, w, x, w},
		{w, 0, w, x},
		{x, w, 0, w},
		{w, x, w, 0},
	}
}

func starAdj(k int) [][]float64 {
	adj := make([][]float64, k+1)
	for i := range adj {
		adj[i] = make([]float64, k+1)
		for j := range adj[i] {
			switch {
			case i == j:
				adj[i][j] = 0
			case i == 0 || j == 0:
				adj[i][j] = 1
			default:
				adj[i][j] = x
			}
		}
	}
	return adj
}

// randomConnectedAdj builds a random spanning tree plus extra edges.
func randomConnectedAdj(rng *rand.Rand, n int, extra int) [][]float64 {
	adj := make([][]float64, n)
	for i := range adj {
		adj[i] = make([]float64, n)
		for j := range adj[i] {
			if i != j {
				adj[i][j] = x
			}
		}
	}
	set := func(i, j int) {
		w := float64(1 + rng.Intn(9))
		adj[i][j], adj[j][i] = w, w
	}
	for v := 1; v < n; v++ {
		set(v, rng.Intn(v))
	}
	for k := 0; k < extra; k++ {
		i, j := rng.Intn(n), rng.Intn(n)
		if i != j {
			set(i, j)
		}
	}
	return adj
}

// memRepo is an in-memory InstanceRepository.
type memRepo struct {
	mu        sync.Mutex
	instances map[string]*domain.Instance
	solutions map[string]*domain.Solution
	saves     int
}

func newMemRepo(ins ...*domain.Instance) *memRepo {
	r := &memRepo{
		instances: make(map[string]*domain.Instance),
		solutions: make(map[string]*domain.Solution),
	}
	for _, in := range ins {
		r.instances[in.Name] = in
	}
	return r
}

func (r *memRepo) ListInstances(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.instances))
	for name := range r.instances {
		out = append(out, name)
	}
	return out, nil
}

func (r *memRepo) LoadInstance(_ context.Context, name string) (*domain.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.instances[name]
	if !ok {
		return nil, fmt.Errorf("load instance %s: %w", name, domain.ErrMalformedInstance)
	}
	return in, nil
}

func (r *memRepo) LoadSolution(_ context.Context, in *domain.Instance) (*domain.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solutions[in.Name], nil
}

func (r *memRepo) SaveSolution(_ context.Context, in *domain.Instance, s *domain.Solution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.solutions[in.Name] = s
	return nil
}

// stubSolver returns a fixed result.
type stubSolver struct {
	sol *domain.Solution
	err error
}

func (s stubSolver) Solve(context.Context, *domain.Instance, SolveOptions) (*domain.Solution, error) {
	return s.sol, s.err
}
