package services

import (
	"context"
	"dropoff-route-service/internal/adapters/repositories"
	"dropoff-route-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBounds(t *testing.T) {
	ctx := context.Background()
	dst := repositories.NewMemoryBoundStore()
	src := repositories.NewMemoryBoundStore()

	seed := func(s *repositories.MemoryBoundStore, name string, cost float64, optimal bool) {
		_, err := s.Upsert(ctx, domain.Bound{Instance: name, Cost: cost, Optimal: optimal})
		require.NoError(t, err)
	}

	seed(dst, "kept", 5, false)
	seed(src, "kept", 6, false)

	seed(dst, "improved", 5, false)
	seed(src, "improved", 4, false)

	seed(dst, "proved", 5, false)
	seed(src, "proved", 5, true)

	seed(dst, "conflict", 5, true)
	seed(src, "conflict", 4, true)

	seed(src, "new", 7, false)

	rep, err := MergeBounds(ctx, dst, src, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, MergeReport{Seen: 5, Updated: 4, Conflicts: 1}, rep)

	want := map[string]struct {
		cost    float64
		optimal bool
	}{
		"kept":     {5, false},
		"improved": {4, false},
		"proved":   {5, true},
		"conflict": {4, true},
		"new":      {7, false},
	}
	for name, w := range want {
		b, err := dst.Get(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, b, name)
		assert.Equal(t, w.cost, b.Cost, name)
		assert.Equal(t, w.optimal, b.Optimal, name)
	}
}

func TestSummarizeBounds(t *testing.T) {
	total, optimal := SummarizeBounds([]domain.Bound{
		{Instance: "a", Optimal: true},
		{Instance: "b"},
		{Instance: "c", Optimal: true},
	})
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, optimal)
}
