package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSolve(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	optimal := testutil.ToFloat64(Solves.WithLabelValues("optimal"))
	skipped := testutil.ToFloat64(Solves.WithLabelValues("skipped"))
	improvements := testutil.ToFloat64(BoundImprovements)

	ObserveSolve("metrics-a", "optimal", 2*time.Second, 42.5, true)
	ObserveSolve("metrics-a", "skipped", 0, 0, false)

	assert.Equal(t, optimal+1, testutil.ToFloat64(Solves.WithLabelValues("optimal")))
	assert.Equal(t, skipped+1, testutil.ToFloat64(Solves.WithLabelValues("skipped")))
	assert.Equal(t, improvements+1, testutil.ToFloat64(BoundImprovements))
	assert.Equal(t, 42.5, testutil.ToFloat64(Damage.WithLabelValues("metrics-a")))
}

func TestWriteTextfile(t *testing.T) {
	RegisterDefault()
	ObserveSolve("metrics-b", "feasible", time.Second, 80, false)

	path := filepath.Join(t.TempDir(), "dropoff.prom")
	require.NoError(t, WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dropoff_solves_total")
	assert.Contains(t, string(raw), `dropoff_damage_percent{instance="metrics-b"} 80`)
}
