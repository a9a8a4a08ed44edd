package mip

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	lpTol       = 1e-9
	intTol      = 1e-6
	presolveTol = 1e-9
)

// Status is the outcome of a branch-and-bound search.
type Status int

const (
	// Stopped before any feasible point was known.
	NoSolution Status = iota
	Optimal
	// Stopped early, or parts of the tree could not be bounded, with an incumbent.
	Feasible
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	default:
		return "no_solution"
	}
}

// Options tune one Solve call. Wall-clock limits come from the context.
type Options struct {
	// Start is a warm start; it is used as the first incumbent when feasible.
	Start []float64
	// MaxNodes stops the search after that many relaxations; 0 means no limit.
	MaxNodes int
	// LogEvery emits a progress line every that many nodes; 0 disables it.
	LogEvery int
	Logger   logrus.FieldLogger
}

// Result of a search. X is nil unless an incumbent exists.
type Result struct {
	Status     Status
	X          []float64
	Objective  float64
	LowerBound float64
	Nodes      int
}

var errInconsistent = errors.New("mip: inconsistent equality constraints")

type node struct {
	lo, hi []float64
	// bound is the relaxation value of the parent.
	bound float64
}

type search struct {
	model  *Model
	eq     []int
	ineq   []int
	log    logrus.FieldLogger
	nodes  int
	best   []float64
	bestF  float64
	broken bool
	// Smallest bound among nodes that could not be relaxed or verified.
	brokenBound float64
}

// Solve minimises the model by depth-first branch and bound.
//
// The search stops when the context is done, including in the middle of a
// relaxation, or when MaxNodes is reached; the best incumbent is then
// returned as Feasible with the smallest open bound.
func Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	eq, ineq, err := m.presolve()
	if errors.Is(err, errInconsistent) {
		log.WithError(err).Debug("mip: presolve proved infeasibility")
		return &Result{Status: Infeasible, LowerBound: math.Inf(1)}, nil
	}
	if err != nil {
		return nil, err
	}

	s := &search{
		model:       m,
		eq:          eq,
		ineq:        ineq,
		log:         log,
		bestF:       math.Inf(1),
		brokenBound: math.Inf(1),
	}

	if opts.Start != nil {
		if err := m.Check(opts.Start, intTol); err != nil {
			log.WithError(err).Info("mip: warm start rejected")
		} else {
			s.accept(opts.Start)
			log.WithField("objective", s.bestF).Debug("mip: warm start accepted")
		}
	}

	root := &node{
		lo:    append([]float64(nil), m.lb...),
		hi:    append([]float64(nil), m.ub...),
		bound: math.Inf(-1),
	}
	stack := []*node{root}
	stopped := false

	for len(stack) > 0 {
		if ctx.Err() != nil || (opts.MaxNodes > 0 && s.nodes >= opts.MaxNodes) {
			stopped = true
			break
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.prunable(nd.bound) {
			continue
		}

		s.nodes++
		if opts.LogEvery > 0 && s.nodes%opts.LogEvery == 0 {
			log.WithFields(logrus.Fields{
				"nodes":     s.nodes,
				"open":      len(stack),
				"incumbent": s.bestF,
			}).Debug("mip: progress")
		}

		obj, x, err := s.relax(ctx, nd)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// The abandoned node stays open so its bound counts below.
			stack = append(stack, nd)
			stopped = true
			break
		}
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			stack = append(stack, s.split(nd, err)...)
			continue
		}
		if s.prunable(obj) {
			continue
		}

		j := s.branchVar(x, nd)
		if j < 0 {
			s.accept(x)
			continue
		}

		v := x[j]
		down := nd.child(obj)
		down.hi[j] = math.Floor(v)
		up := nd.child(obj)
		up.lo[j] = math.Ceil(v)

		// The child nearer the relaxation is explored first.
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	res := &Result{Nodes: s.nodes, Objective: s.bestF}
	if s.best != nil {
		res.X = s.best
	}

	lower := math.Min(s.bestF, s.brokenBound)
	for _, nd := range stack {
		lower = math.Min(lower, nd.bound)
	}

	switch {
	case s.best == nil && !stopped && !s.broken:
		res.Status = Infeasible
		res.LowerBound = math.Inf(1)
	case s.best == nil:
		res.Status = NoSolution
		res.LowerBound = lower
	case !stopped && !s.broken:
		res.Status = Optimal
		res.LowerBound = s.bestF
	default:
		res.Status = Feasible
		res.LowerBound = lower
	}

	log.WithFields(logrus.Fields{
		"status":      res.Status,
		"nodes":       res.Nodes,
		"objective":   res.Objective,
		"lower_bound": res.LowerBound,
	}).Debug("mip: search finished")

	return res, nil
}

func (nd *node) child(bound float64) *node {
	return &node{
		lo:    append([]float64(nil), nd.lo...),
		hi:    append([]float64(nil), nd.hi...),
		bound: bound,
	}
}

func (s *search) prunable(bound float64) bool {
	if math.IsInf(s.bestF, 1) {
		return math.IsInf(bound, 1)
	}
	return bound >= s.bestF-lpTol*math.Max(1, math.Abs(s.bestF))
}

// split handles a node whose relaxation failed numerically. It branches on
// the first unfixed integer variable, keeping the parent's bound.
func (s *search) split(nd *node, cause error) []*node {
	for j, integer := range s.model.integer {
		if !integer || nd.hi[j]-nd.lo[j] < 0.5 {
			continue
		}
		mid := math.Floor((nd.lo[j] + nd.hi[j]) / 2)
		down := nd.child(nd.bound)
		down.hi[j] = mid
		up := nd.child(nd.bound)
		up.lo[j] = mid + 1
		return []*node{up, down}
	}

	s.log.WithError(cause).Warn("mip: relaxation failed with all integers fixed")
	s.broken = true
	s.brokenBound = math.Min(s.brokenBound, nd.bound)
	return nil
}

func (s *search) branchVar(x []float64, nd *node) int {
	best, bestFrac := -1, 0.0
	for j, integer := range s.model.integer {
		if !integer || nd.hi[j]-nd.lo[j] < 0.5 {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist > intTol && dist > bestFrac {
			best, bestFrac = j, dist
		}
	}
	return best
}

// accept rounds the integer part of x and records it as incumbent when it
// verifies and improves the objective.
func (s *search) accept(x []float64) {
	y := append([]float64(nil), x...)
	for j, integer := range s.model.integer {
		if integer {
			y[j] = math.Round(y[j])
		}
	}

	if err := s.model.Check(y, 1e-5); err != nil {
		s.log.WithError(err).Warn("mip: integral relaxation failed verification")
		s.broken = true
		return
	}

	f := s.model.Objective(y)
	if f < s.bestF {
		s.best, s.bestF = y, f
		s.log.WithFields(logrus.Fields{
			"nodes":     s.nodes,
			"incumbent": f,
		}).Debug("mip: new incumbent")
	}
}

// relax solves the LP relaxation of nd in standard form. Variables are
// shifted to y = x - lo; each gets a row y + u = hi - lo, and each
// inequality gets a slack column.
func (s *search) relax(ctx context.Context, nd *node) (float64, []float64, error) {
	m := s.model
	n := m.NumVars()

	for j := 0; j < n; j++ {
		if nd.lo[j] > nd.hi[j]+intTol {
			return 0, nil, lp.ErrInfeasible
		}
	}

	rows := len(s.eq) + len(s.ineq) + n
	cols := n + len(s.ineq) + n
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)
	copy(c, m.obj)

	r := 0
	for _, i := range s.eq {
		s.fillRow(a, b, r, m.rows[i], nd.lo)
		r++
	}
	for k, i := range s.ineq {
		s.fillRow(a, b, r, m.rows[i], nd.lo)
		if m.rows[i].sense == LessEqual {
			a.Set(r, n+k, 1)
		} else {
			a.Set(r, n+k, -1)
		}
		r++
	}
	for j := 0; j < n; j++ {
		a.Set(r, j, 1)
		a.Set(r, n+len(s.ineq)+j, 1)
		b[r] = math.Max(0, nd.hi[j]-nd.lo[j])
		r++
	}

	optF, optX, err := simplex(ctx, c, a, b)
	if err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	for j := range x {
		x[j] = nd.lo[j] + optX[j]
	}
	return optF + m.Objective(nd.lo), x, nil
}

func (s *search) fillRow(a *mat.Dense, b []float64, r int, row constraint, lo []float64) {
	rhs := row.rhs
	for _, t := range row.terms {
		a.Set(r, t.Var, a.At(r, t.Var)+t.Coef)
		rhs -= t.Coef * lo[t.Var]
	}
	b[r] = rhs
}

// lpSimplex is replaced in tests.
var lpSimplex = lp.Simplex

type lpResult struct {
	f   float64
	x   []float64
	err error
}

// simplex waits for the LP until ctx is done. lp.Simplex cannot be
// interrupted, so an abandoned call finishes in the background and its
// result is dropped.
func simplex(ctx context.Context, c []float64, a *mat.Dense, b []float64) (float64, []float64, error) {
	solve := lpSimplex
	done := make(chan lpResult, 1)
	go func() {
		var r lpResult
		defer func() {
			if p := recover(); p != nil {
				r = lpResult{err: fmt.Errorf("mip: simplex panic: %v", p)}
			}
			done <- r
		}()
		r.f, r.x, r.err = solve(c, a, b, lpTol, nil)
	}()

	select {
	case r := <-done:
		return r.f, r.x, r.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// presolve keeps a linearly independent subset of the equality rows, since
// the simplex needs full row rank. A dependent row whose right-hand side
// disagrees with its combination makes the model infeasible.
func (m *Model) presolve() (eq, ineq []int, err error) {
	n := len(m.names)

	type pivotRow struct {
		col  int
		vals []float64
	}
	var basis []pivotRow

	for i, row := range m.rows {
		if row.sense != Equal {
			ineq = append(ineq, i)
			continue
		}

		v := make([]float64, n+1)
		for _, t := range row.terms {
			v[t.Var] += t.Coef
		}
		v[n] = row.rhs

		for _, p := range basis {
			if f := v[p.col]; f != 0 {
				for k := range v {
					v[k] -= f * p.vals[k]
				}
			}
		}

		col, size := -1, 0.0
		for k := 0; k < n; k++ {
			if abs := math.Abs(v[k]); abs > size {
				col, size = k, abs
			}
		}
		if size <= presolveTol {
			if math.Abs(v[n]) > presolveTol*math.Max(1, math.Abs(row.rhs)) {
				return nil, nil, fmt.Errorf("%w: row %s", errInconsistent, row.name)
			}
			continue
		}

		pivot := v[col]
		for k := range v {
			v[k] /= pivot
		}
		for _, p := range basis {
			if f := p.vals[col]; f != 0 {
				for k := range p.vals {
					p.vals[k] -= f * v[k]
				}
			}
		}

		basis = append(basis, pivotRow{col: col, vals: v})
		eq = append(eq, i)
	}

	return eq, ineq, nil
}
