// Package mip solves small mixed-integer linear programs by branch and bound
// over LP relaxations computed with gonum's simplex.
package mip

import (
	"fmt"
	"math"
)

// Sense is the comparison of a linear constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

type constraint struct {
	name  string
	terms []Term
	sense Sense
	rhs   float64
}

// Model is a minimisation problem over bounded variables.
// Every variable needs finite bounds.
type Model struct {
	names   []string
	lb, ub  []float64
	obj     []float64
	integer []bool
	rows    []constraint
}

func NewModel() *Model {
	return &Model{}
}

// AddVar adds a variable with bounds [lb, ub] and objective coefficient obj,
// returning its index.
func (m *Model) AddVar(name string, lb, ub, obj float64, integer bool) int {
	m.names = append(m.names, name)
	m.lb = append(m.lb, lb)
	m.ub = append(m.ub, ub)
	m.obj = append(m.obj, obj)
	m.integer = append(m.integer, integer)
	return len(m.names) - 1
}

// AddBinary adds a 0/1 variable.
func (m *Model) AddBinary(name string, obj float64) int {
	return m.AddVar(name, 0, 1, obj, true)
}

// AddConstraint adds Σ terms (sense) rhs. Repeated variables are summed.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.rows = append(m.rows, constraint{
		name:  name,
		terms: append([]Term(nil), terms...),
		sense: sense,
		rhs:   rhs,
	})
}

func (m *Model) NumVars() int        { return len(m.names) }
func (m *Model) NumConstraints() int { return len(m.rows) }

// RelaxationCells bounds the entry count of the dense standard-form matrix
// that each relaxation builds.
func (m *Model) RelaxationCells() int {
	n, ineq := len(m.names), 0
	for _, row := range m.rows {
		if row.sense != Equal {
			ineq++
		}
	}
	return (len(m.rows) + n) * (2*n + ineq)
}
func (m *Model) VarName(j int) string {
	return m.names[j]
}

// Objective evaluates the objective at x.
func (m *Model) Objective(x []float64) float64 {
	total := 0.0
	for j, c := range m.obj {
		total += c * x[j]
	}
	return total
}

// Check verifies bounds, integrality and constraints at x within tol.
func (m *Model) Check(x []float64, tol float64) error {
	if len(x) != len(m.names) {
		return fmt.Errorf("mip: check: got %d values for %d variables", len(x), len(m.names))
	}

	for j, v := range x {
		if v < m.lb[j]-tol || v > m.ub[j]+tol {
			return fmt.Errorf("mip: check: %s=%g outside [%g, %g]", m.names[j], v, m.lb[j], m.ub[j])
		}
		if m.integer[j] && math.Abs(v-math.Round(v)) > tol {
			return fmt.Errorf("mip: check: %s=%g is not integral", m.names[j], v)
		}
	}

	for _, r := range m.rows {
		lhs := 0.0
		for _, t := range r.terms {
			lhs += t.Coef * x[t.Var]
		}

		scale := tol * math.Max(1, math.Abs(r.rhs))
		var ok bool
		switch r.sense {
		case LessEqual:
			ok = lhs <= r.rhs+scale
		case GreaterEqual:
			ok = lhs >= r.rhs-scale
		default:
			ok = math.Abs(lhs-r.rhs) <= scale
		}
		if !ok {
			return fmt.Errorf("mip: check: constraint %s violated: %g %s %g", r.name, lhs, r.sense, r.rhs)
		}
	}

	return nil
}

func (m *Model) validate() error {
	for j := range m.names {
		if math.IsInf(m.lb[j], 0) || math.IsInf(m.ub[j], 0) || math.IsNaN(m.lb[j]) || math.IsNaN(m.ub[j]) {
			return fmt.Errorf("mip: variable %s needs finite bounds", m.names[j])
		}
	}
	for _, r := range m.rows {
		for _, t := range r.terms {
			if t.Var < 0 || t.Var >= len(m.names) {
				return fmt.Errorf("mip: constraint %s references unknown variable %d", r.name, t.Var)
			}
		}
	}
	return nil
}
