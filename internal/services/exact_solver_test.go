package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const costDelta = 1e-6

func solveExact(t *testing.T, ctx context.Context, in *domain.Instance, opts SolveOptions) *domain.Solution {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	sol, err := ExactSolver{}.Solve(ctx, in, opts)
	require.NoError(t, err)
	require.NoError(t, domain.Validate(in.Graph, in.Depot, in.Homes, sol.Route, sol.Dropoffs))
	return sol
}

func TestExactSolverStaysHomeOnSquare(t *testing.T) {
	in := newInstance(t, squareAdj(1), 2)

	sol := solveExact(t, context.Background(), in, SolveOptions{Seeds: 3})

	assert.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 2.0, sol.Cost, costDelta)
	assert.InDelta(t, sol.Cost, sol.LowerBound, costDelta)
	assert.Equal(t, domain.Route{0}, sol.Route)

	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)
	circuit, err := Evaluate(in, table, domain.Route{0, 1, 2, 3, 0})
	require.NoError(t, err)
	assert.InDelta(t, 8.0/3.0, circuit.Cost, costDelta)
	assert.Greater(t, circuit.Cost, sol.Cost)
}

func TestExactSolverSingleLocation(t *testing.T) {
	in := newInstance(t, [][]float64{{0}})

	sol := solveExact(t, context.Background(), in, SolveOptions{})

	assert.Equal(t, domain.StatusOptimal, sol.Status)
	assert.Equal(t, domain.Route{0}, sol.Route)
	assert.Zero(t, sol.Cost)
	assert.Empty(t, sol.Dropoffs)
}

func TestExactSolverStarWithOneRiderPerLeaf(t *testing.T) {
	in := newInstance(t, starAdj(3), 1, 2, 3)

	sol := solveExact(t, context.Background(), in, SolveOptions{Seeds: 5})

	assert.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 3.0, sol.Cost, costDelta)
	assert.Equal(t, domain.Route{0}, sol.Route)
}

func TestExactSolverDrivesSharedRiders(t *testing.T) {
	adj := [][]float64{
		{0, 1},
		{1, 0},
	}
	in := newInstance(t, adj, 1, 1)

	sol := solveExact(t, context.Background(), in, SolveOptions{})

	assert.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 4.0/3.0, sol.Cost, costDelta)
	assert.Equal(t, domain.Route{0, 1, 0}, sol.Route)
	assert.Equal(t, domain.Assignment{1: {1, 1}}, sol.Dropoffs)
}

func TestExactSolverMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name  string
		adj   [][]float64
		homes []int
		want  float64
	}{
		{
			name: "triangle",
			adj: [][]float64{
				{0, 1, 1.5},
				{1, 0, 1},
				{1.5, 1, 0},
			},
			homes: []int{2, 2, 1},
			want:  7.0 / 3.0,
		},
		{
			name:  "square",
			adj:   squareAdj(2),
			homes: []int{1, 2, 3},
			want:  16.0 / 3.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := newInstance(t, tc.adj, tc.homes...)

			table, err := NewDistanceTable(in.Graph)
			require.NoError(t, err)
			brute, err := BruteForce(context.Background(), in, table)
			require.NoError(t, err)

			sol := solveExact(t, context.Background(), in, SolveOptions{Seeds: 2})

			assert.Equal(t, domain.StatusOptimal, sol.Status)
			assert.InDelta(t, tc.want, brute.Cost, costDelta)
			assert.InDelta(t, brute.Cost, sol.Cost, costDelta)
		})
	}
}

func TestExactSolverAgreesWithBruteForceOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	for trial := 0; trial < 6; trial++ {
		n := 3 + rng.Intn(2)
		adj := randomConnectedAdj(rng, n, 1)
		homes := make([]int, 1+rng.Intn(3))
		for i := range homes {
			homes[i] = rng.Intn(n)
		}
		in := newInstance(t, adj, homes...)
		if len(in.Graph.Arcs()) > 12 {
			continue
		}

		table, err := NewDistanceTable(in.Graph)
		require.NoError(t, err)
		brute, err := BruteForce(context.Background(), in, table)
		require.NoError(t, err)

		sol := solveExact(t, context.Background(), in, SolveOptions{Seeds: 2})
		assert.InDelta(t, brute.Cost, sol.Cost, costDelta, "trial %d homes %v", trial, homes)
	}
}

func TestExactSolverPreviousRouteIsStable(t *testing.T) {
	in := newInstance(t, squareAdj(2), 1, 2, 3)

	first := solveExact(t, context.Background(), in, SolveOptions{Seeds: 2})
	second := solveExact(t, context.Background(), in, SolveOptions{Seeds: 0, Previous: first.Route})

	assert.InDelta(t, first.Cost, second.Cost, costDelta)
	assert.Equal(t, domain.StatusOptimal, second.Status)
}

func TestExactSolverCancelledReturnsWarmStart(t *testing.T) {
	in := newInstance(t, squareAdj(1), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol := solveExact(t, ctx, in, SolveOptions{Seeds: 3})

	assert.Equal(t, domain.StatusFeasible, sol.Status)
	assert.InDelta(t, 2.0, sol.Cost, costDelta)
	assert.GreaterOrEqual(t, sol.LowerBound, 0.0)
	assert.LessOrEqual(t, sol.LowerBound, sol.Cost)
}

func TestExactSolverDeadlineDuringSearchKeepsWarmStart(t *testing.T) {
	adj := randomConnectedAdj(rand.New(rand.NewSource(11)), 10, 12)
	in := newInstance(t, adj, 3, 5, 7, 9)

	opts := SolveOptions{Seeds: 2, TimeLimit: 20 * time.Millisecond, Logger: quietLogger()}
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)
	opts.Rand = rand.New(rand.NewSource(1))
	seed, err := WarmStart(in, table, opts.warmStart())
	require.NoError(t, err)

	opts.Rand = rand.New(rand.NewSource(1))
	began := time.Now()
	sol := solveExact(t, context.Background(), in, opts)
	assert.Less(t, time.Since(began), 5*time.Second)

	assert.Equal(t, domain.StatusFeasible, sol.Status)
	assert.InDelta(t, seed.Cost, sol.Cost, costDelta)
	assert.GreaterOrEqual(t, sol.LowerBound, 0.0)
	assert.LessOrEqual(t, sol.LowerBound, sol.Cost)
}

func TestExactSolverHonoursTimeLimitOnLargeInstance(t *testing.T) {
	adj := randomConnectedAdj(rand.New(rand.NewSource(5)), 25, 40)
	homes := make([]int, 12)
	for i := range homes {
		homes[i] = i + 1
	}
	in := newInstance(t, adj, homes...)

	began := time.Now()
	sol := solveExact(t, context.Background(), in, SolveOptions{Seeds: 2, TimeLimit: time.Second})
	assert.Less(t, time.Since(began), 5*time.Second)

	assert.Equal(t, domain.StatusFeasible, sol.Status)
	assert.GreaterOrEqual(t, sol.LowerBound, 0.0)
	assert.LessOrEqual(t, sol.LowerBound, sol.Cost)

	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)
	home, err := Evaluate(in, table, domain.Route{in.Depot})
	require.NoError(t, err)
	assert.LessOrEqual(t, sol.Cost, home.Cost+costDelta)
}

func TestExactSolverSkipsModelOverCellLimit(t *testing.T) {
	in := newInstance(t, squareAdj(1), 2)

	sol, err := ExactSolver{MaxModelCells: 1}.Solve(context.Background(), in, SolveOptions{
		Seeds:  3,
		Rand:   rand.New(rand.NewSource(1)),
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFeasible, sol.Status)
	assert.InDelta(t, 2.0, sol.Cost, costDelta)
	assert.Equal(t, 0.0, sol.LowerBound)

	em := buildExactModel(in)
	assert.Less(t, em.model.RelaxationCells(), DefaultMaxModelCells)
}

func TestExactModelStartSatisfiesModel(t *testing.T) {
	in := newInstance(t, squareAdj(2), 1, 2, 2, 3)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	for _, route := range []domain.Route{
		{0},
		{0, 1, 0},
		{0, 1, 2, 3, 0},
		{0, 3, 2, 1, 0},
	} {
		seed, err := Evaluate(in, table, route)
		require.NoError(t, err)

		em := buildExactModel(in)
		start := em.start(seed, table)
		require.NotNil(t, start, "route %v", route)
		assert.NoError(t, em.model.Check(start, 1e-6), "route %v", route)
		assert.InDelta(t, seed.Cost, em.model.Objective(start), costDelta, "route %v", route)
	}
}

func TestExactModelStartRejectsRepeatedArc(t *testing.T) {
	in := newInstance(t, [][]float64{{0, 1}, {1, 0}}, 1)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	seed, err := Evaluate(in, table, domain.Route{0, 1, 0, 1, 0})
	require.NoError(t, err)

	assert.Nil(t, buildExactModel(in).start(seed, table))
}

func TestBruteForceRejectsLargeGraphs(t *testing.T) {
	adj := randomConnectedAdj(rand.New(rand.NewSource(2)), 12, 40)
	in := newInstance(t, adj, 1)
	require.Greater(t, len(in.Graph.Arcs()), MaxBruteForceArcs)

	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)
	_, err = BruteForce(context.Background(), in, table)
	assert.ErrorIs(t, err, domain.ErrInstanceTooLarge)
}
