package services

import (
	"context"
	"dropoff-route-service/internal/adapters/repositories"
	"dropoff-route-service/internal/domain"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveBatch(t *testing.T) {
	ctx := context.Background()

	var ins []*domain.Instance
	var batch []string
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 6; i++ {
		adj := randomConnectedAdj(rng, 5, 4)
		locs := names(5)
		in, err := domain.NewInstance(fmt.Sprintf("batch-%d", i), locs, []string{locs[1], locs[4]}, locs[0], adj)
		require.NoError(t, err)
		ins = append(ins, in)
		batch = append(batch, in.Name)
	}
	batch = append(batch, "missing")

	repo := newMemRepo(ins...)
	store := repositories.NewMemoryBoundStore()

	base := SolveInstanceRequest{
		Solver: WarmStartSolver{},
		Solve: SolveOptions{
			Seeds:  3,
			Rand:   rand.New(rand.NewSource(9)),
			Logger: quietLogger(),
		},
	}

	reports, err := SolveBatch(ctx, batch, 3, base, repo, store)
	require.NoError(t, err)
	require.Len(t, reports, len(batch))

	for i, rep := range reports[:len(ins)] {
		require.NotNil(t, rep, batch[i])
		assert.Equal(t, batch[i], rep.Instance)
		assert.NoError(t, rep.Err)
		assert.True(t, rep.Written)
	}

	missing := reports[len(reports)-1]
	assert.Equal(t, "missing", missing.Instance)
	assert.ErrorIs(t, missing.Err, domain.ErrMalformedInstance)

	bounds, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, bounds, len(ins))
	assert.Equal(t, len(ins), repo.saves)
}

func TestSolveBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := newInstance(t, squareAdj(1), 2)
	base := SolveInstanceRequest{Solver: WarmStartSolver{}, Solve: SolveOptions{Logger: quietLogger()}}

	_, err := SolveBatch(ctx, []string{in.Name}, 1, base, newMemRepo(in), repositories.NewMemoryBoundStore())
	assert.ErrorIs(t, err, context.Canceled)
}
