package mip

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func quietOptions() Options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return Options{Logger: log}
}

func knapsack() (*Model, []int) {
	m := NewModel()
	a := m.AddBinary("a", -5)
	b := m.AddBinary("b", -4)
	c := m.AddBinary("c", -3)
	m.AddConstraint("w1", []Term{{a, 2}, {b, 3}, {c, 1}}, LessEqual, 5)
	m.AddConstraint("w2", []Term{{a, 4}, {b, 1}, {c, 2}}, LessEqual, 11)
	m.AddConstraint("w3", []Term{{a, 3}, {b, 4}, {c, 2}}, LessEqual, 8)
	return m, []int{a, b, c}
}

func TestSolveKnapsack(t *testing.T) {
	m, v := knapsack()

	res, err := Solve(context.Background(), m, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, -9, res.Objective, 1e-6)
	assert.InDelta(t, -9, res.LowerBound, 1e-6)
	assert.InDelta(t, 1, res.X[v[0]], 1e-9)
	assert.InDelta(t, 1, res.X[v[1]], 1e-9)
	assert.InDelta(t, 0, res.X[v[2]], 1e-9)
	require.NoError(t, m.Check(res.X, 1e-6))
}

func TestSolveContinuous(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 0, 10, -1, false)
	y := m.AddVar("y", 0, 10, -1, false)
	m.AddConstraint("c1", []Term{{x, 1}, {y, 2}}, LessEqual, 4)
	m.AddConstraint("c2", []Term{{x, 3}, {y, 1}}, LessEqual, 6)

	res, err := Solve(context.Background(), m, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, -2.8, res.Objective, 1e-6)
	assert.Equal(t, 1, res.Nodes)
}

func TestSolveIntegerInfeasible(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 0, 5, 1, true)
	y := m.AddVar("y", 0, 5, 1, true)
	m.AddConstraint("odd", []Term{{x, 2}, {y, 2}}, Equal, 3)

	res, err := Solve(context.Background(), m, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, Infeasible, res.Status)
	assert.Nil(t, res.X)
}

func TestSolveDependentEqualities(t *testing.T) {
	m := NewModel()
	x := m.AddBinary("x", 0)
	y := m.AddBinary("y", 1)
	z := m.AddBinary("z", 2)
	m.AddConstraint("one", []Term{{x, 1}, {y, 1}}, Equal, 1)
	m.AddConstraint("twice", []Term{{x, 2}, {y, 2}}, Equal, 2)
	m.AddConstraint("link", []Term{{z, 1}, {x, -1}}, GreaterEqual, 0)

	res, err := Solve(context.Background(), m, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 1, res.Objective, 1e-6)
	assert.InDelta(t, 1, res.X[y], 1e-9)

	eq, ineq, err := m.presolve()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, eq)
	assert.Equal(t, []int{2}, ineq)
}

func TestSolveInconsistentEqualities(t *testing.T) {
	m := NewModel()
	x := m.AddBinary("x", 0)
	y := m.AddBinary("y", 1)
	m.AddConstraint("one", []Term{{x, 1}, {y, 1}}, Equal, 1)
	m.AddConstraint("other", []Term{{x, 2}, {y, 2}}, Equal, 3)

	res, err := Solve(context.Background(), m, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, Infeasible, res.Status)
}

func TestSolveStopsAtDeadline(t *testing.T) {
	m, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Solve(ctx, m, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, NoSolution, res.Status)
	assert.Nil(t, res.X)

	opts := quietOptions()
	opts.Start = []float64{1, 0, 1}
	res, err = Solve(ctx, m, opts)
	require.NoError(t, err)
	assert.Equal(t, Feasible, res.Status)
	assert.InDelta(t, -8, res.Objective, 1e-9)
	assert.True(t, math.IsInf(res.LowerBound, -1))
}

// blockRelaxations makes every relaxation wait until the test ends.
func blockRelaxations(t *testing.T) {
	t.Helper()
	release := make(chan struct{})
	orig := lpSimplex
	lpSimplex = func(c []float64, a mat.Matrix, b []float64, tol float64, basic []int) (float64, []float64, error) {
		<-release
		return orig(c, a, b, tol, basic)
	}
	t.Cleanup(func() {
		lpSimplex = orig
		close(release)
	})
}

func TestSolveDeadlineDuringRelaxation(t *testing.T) {
	blockRelaxations(t)
	m, _ := knapsack()

	opts := quietOptions()
	opts.Start = []float64{1, 0, 1}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	began := time.Now()
	res, err := Solve(ctx, m, opts)
	require.NoError(t, err)
	assert.Less(t, time.Since(began), 5*time.Second)

	assert.Equal(t, Feasible, res.Status)
	assert.Equal(t, []float64{1, 0, 1}, res.X)
	assert.InDelta(t, -8, res.Objective, 1e-9)
	assert.Equal(t, 1, res.Nodes)
	assert.LessOrEqual(t, res.LowerBound, res.Objective)
	assert.True(t, math.IsInf(res.LowerBound, -1), "root stays open")
}

func TestSolveDeadlineDuringRelaxationWithoutStart(t *testing.T) {
	blockRelaxations(t)
	m, _ := knapsack()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := Solve(ctx, m, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, NoSolution, res.Status)
	assert.Nil(t, res.X)
}

func TestRelaxationCells(t *testing.T) {
	m, _ := knapsack()
	// 3 rows + 3 vars by 2*3 vars + 3 slacks.
	assert.Equal(t, 54, m.RelaxationCells())

	m.AddConstraint("eq", []Term{{0, 1}}, Equal, 1)
	assert.Equal(t, 63, m.RelaxationCells())
}

func TestSolveWarmStart(t *testing.T) {
	m, _ := knapsack()

	opts := quietOptions()
	opts.Start = []float64{1, 1, 1}
	res, err := Solve(context.Background(), m, opts)
	require.NoError(t, err)
	assert.Equal(t, Optimal, res.Status, "infeasible start is ignored")
	assert.InDelta(t, -9, res.Objective, 1e-6)

	opts.Start = []float64{1, 1, 0}
	res, err = Solve(context.Background(), m, opts)
	require.NoError(t, err)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, -9, res.Objective, 1e-6)
}

func TestModelCheck(t *testing.T) {
	m, _ := knapsack()

	require.NoError(t, m.Check([]float64{1, 1, 0}, 1e-9))
	assert.ErrorContains(t, m.Check([]float64{1, 1, 1}, 1e-9), "w1")
	assert.ErrorContains(t, m.Check([]float64{0.5, 0, 0}, 1e-9), "not integral")
	assert.ErrorContains(t, m.Check([]float64{2, 0, 0}, 1e-9), "outside")
	assert.Error(t, m.Check([]float64{1}, 1e-9))
}

func TestValidateBounds(t *testing.T) {
	m := NewModel()
	m.AddVar("free", 0, math.Inf(1), 1, false)
	_, err := Solve(context.Background(), m, quietOptions())
	assert.ErrorContains(t, err, "finite bounds")
}
