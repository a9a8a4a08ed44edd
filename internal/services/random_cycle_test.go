package services

import (
	"dropoff-route-service/internal/domain"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomCycle(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(7)
		g, err := domain.BuildGraph(randomConnectedAdj(rng, n, n))
		require.NoError(t, err)

		depot := rng.Intn(n)
		route := GenerateRandomCycle(rng, g, depot)

		require.GreaterOrEqual(t, len(route), 3, "trial %d: %v", trial, route)
		assert.Equal(t, depot, route[0])
		assert.Equal(t, depot, route[len(route)-1])

		_, err = g.DriveCost(route)
		require.NoError(t, err, "trial %d: %v", trial, route)

		used := map[domain.Arc]bool{}
		for _, a := range route.Arcs() {
			assert.False(t, used[a], "trial %d: arc %v reused in %v", trial, a, route)
			used[a] = true
		}
	}
}

func TestGenerateRandomCycleRepairsBackToDepot(t *testing.T) {
	// A path graph forces the walk to bounce at the far end.
	adj := [][]float64{
		{0, 1, x},
		{1, 0, 1},
		{x, 1, 0},
	}
	g, err := domain.BuildGraph(adj)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		route := GenerateRandomCycle(rand.New(rand.NewSource(seed)), g, 0)
		assert.Contains(t, []domain.Route{
			{0, 1, 0},
			{0, 1, 2, 1, 0},
		}, route)
	}
}

func TestGenerateRandomCycleSingleLocation(t *testing.T) {
	g, err := domain.BuildGraph([][]float64{{0}})
	require.NoError(t, err)
	assert.Equal(t, domain.Route{0}, GenerateRandomCycle(rand.New(rand.NewSource(1)), g, 0))
}

func TestGenerateRandomCycleDeterministic(t *testing.T) {
	g, err := domain.BuildGraph(randomConnectedAdj(rand.New(rand.NewSource(11)), 8, 10))
	require.NoError(t, err)

	a := GenerateRandomCycle(rand.New(rand.NewSource(5)), g, 0)
	b := GenerateRandomCycle(rand.New(rand.NewSource(5)), g, 0)
	assert.Equal(t, a, b)
}

func sortedArcs(arcs []domain.Arc) []domain.Arc {
	out := append([]domain.Arc(nil), arcs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
