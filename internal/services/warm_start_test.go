package services

import (
	"dropoff-route-service/internal/domain"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmStartNoSeedsStaysHome(t *testing.T) {
	in := newInstance(t, squareAdj(1), 2)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	sol, err := WarmStart(in, table, WarmStartOptions{Seeds: 0, Logger: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFeasible, sol.Status)
	assert.Equal(t, domain.Route{0}, sol.Route)
	assert.InDelta(t, 2.0, sol.Cost, costDelta)
}

func TestWarmStartUsesPrevious(t *testing.T) {
	in := newInstance(t, squareAdj(2), 1, 2, 3)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	sol, err := WarmStart(in, table, WarmStartOptions{
		Previous: domain.Route{0, 1, 2, 3, 0},
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Route{0, 1, 2, 3, 0}, sol.Route)
	assert.InDelta(t, 16.0/3.0, sol.Cost, costDelta)
}

func TestWarmStartIgnoresBrokenPrevious(t *testing.T) {
	in := newInstance(t, squareAdj(2), 1, 2, 3)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	for _, prev := range []domain.Route{
		{1, 2, 1},
		{0, 2, 0},
	} {
		sol, err := WarmStart(in, table, WarmStartOptions{Previous: prev, Logger: quietLogger()})
		require.NoError(t, err)
		assert.NotEqual(t, prev, sol.Route)
		assert.NoError(t, domain.Validate(in.Graph, in.Depot, in.Homes, sol.Route, sol.Dropoffs))
	}
}

func TestWarmStartNeverWorseThanStayingHome(t *testing.T) {
	rng := rand.New(rand.NewSource(8))

	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(8)
		adj := randomConnectedAdj(rng, n, n)
		homes := make([]int, 1+rng.Intn(5))
		for i := range homes {
			homes[i] = rng.Intn(n)
		}
		in := newInstance(t, adj, homes...)
		table, err := NewDistanceTable(in.Graph)
		require.NoError(t, err)

		home, err := Evaluate(in, table, domain.Route{0})
		require.NoError(t, err)

		sol, err := WarmStart(in, table, WarmStartOptions{Seeds: 5, Rand: rng, Logger: quietLogger()})
		require.NoError(t, err)
		assert.LessOrEqual(t, sol.Cost, home.Cost)
		assert.NoError(t, domain.Validate(in.Graph, in.Depot, in.Homes, sol.Route, sol.Dropoffs))
	}
}

func TestNearestNeighborRoute(t *testing.T) {
	in := newInstance(t, squareAdj(2), 3, 1, 2, 2)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	assert.Equal(t, domain.Route{0, 1, 2, 3, 0}, NearestNeighborRoute(in, table))
}

func TestNearestNeighborRouteFollowsShortestPaths(t *testing.T) {
	in := newInstance(t, starAdj(3), 2, 0, 3)
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	route := NearestNeighborRoute(in, table)
	assert.Equal(t, domain.Route{0, 2, 0, 3, 0}, route)
	_, err = in.Graph.DriveCost(route)
	assert.NoError(t, err)
}

func TestNearestNeighborRouteNoRiders(t *testing.T) {
	in := newInstance(t, squareAdj(1))
	table, err := NewDistanceTable(in.Graph)
	require.NoError(t, err)

	assert.Equal(t, domain.Route{0}, NearestNeighborRoute(in, table))
}
