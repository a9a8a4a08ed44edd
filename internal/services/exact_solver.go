package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/mip"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// exactModel is the joint car-route and walking formulation over the
// directed arcs of one instance.
//
// Car: x[a] selects arc a, with in-degree equal to out-degree everywhere.
// A commodity f leaves a virtual source into the depot (f0) and every
// location absorbs one unit per selected incoming arc, so all selected arcs
// hang off one circuit through the depot.
//
// Riders sharing a home walk identically, so walking is modelled per home:
// s[h][v] lets the riders of h off at v (only where the car arrives, or at
// the depot) and t[h][a] carries their unit of walking flow to h.
type exactModel struct {
	model *mip.Model
	in    *domain.Instance
	arcs  []domain.Arc
	arcID map[domain.Arc]int

	x, f  []int
	f0    int
	homes []int
	t, s  [][]int
}

func buildExactModel(in *domain.Instance) *exactModel {
	g := in.Graph
	n := g.Len()
	arcs := g.Arcs()
	bigM := float64(len(arcs))

	em := &exactModel{
		model: mip.NewModel(),
		in:    in,
		arcs:  arcs,
		arcID: make(map[domain.Arc]int, len(arcs)),
	}
	m := em.model

	counts := in.HomeCounts()
	for h := range counts {
		em.homes = append(em.homes, h)
	}
	sort.Ints(em.homes)

	inArcs := make([][]int, n)
	outArcs := make([][]int, n)
	for i, a := range arcs {
		em.arcID[a] = i
		inArcs[a.To] = append(inArcs[a.To], i)
		outArcs[a.From] = append(outArcs[a.From], i)
	}

	for _, a := range arcs {
		w, _ := g.Weight(a.From, a.To)
		em.x = append(em.x, m.AddBinary(fmt.Sprintf("x[%d,%d]", a.From, a.To), domain.DrivingCostFactor*w))
	}
	for _, a := range arcs {
		em.f = append(em.f, m.AddVar(fmt.Sprintf("f[%d,%d]", a.From, a.To), 0, bigM, 0, false))
	}
	em.f0 = m.AddVar("f0", 0, bigM, 0, false)

	for _, h := range em.homes {
		riders := float64(counts[h])
		ts := make([]int, len(arcs))
		for i, a := range arcs {
			w, _ := g.Weight(a.From, a.To)
			ts[i] = m.AddBinary(fmt.Sprintf("t[%d][%d,%d]", h, a.From, a.To), domain.WalkingCostFactor*riders*w)
		}
		ss := make([]int, n)
		for v := 0; v < n; v++ {
			ss[v] = m.AddBinary(fmt.Sprintf("s[%d][%d]", h, v), 0)
		}
		em.t = append(em.t, ts)
		em.s = append(em.s, ss)
	}

	for v := 0; v < n; v++ {
		var degree, flow []mip.Term
		for _, i := range inArcs[v] {
			degree = append(degree, mip.Term{Var: em.x[i], Coef: 1})
			flow = append(flow, mip.Term{Var: em.f[i], Coef: 1}, mip.Term{Var: em.x[i], Coef: -1})
		}
		for _, i := range outArcs[v] {
			degree = append(degree, mip.Term{Var: em.x[i], Coef: -1})
			flow = append(flow, mip.Term{Var: em.f[i], Coef: -1})
		}
		if v == in.Depot {
			flow = append(flow, mip.Term{Var: em.f0, Coef: 1})
		}
		m.AddConstraint(fmt.Sprintf("degree[%d]", v), degree, mip.Equal, 0)
		m.AddConstraint(fmt.Sprintf("carflow[%d]", v), flow, mip.Equal, 0)
	}

	for i := range arcs {
		m.AddConstraint(fmt.Sprintf("link[%d]", i), []mip.Term{
			{Var: em.f[i], Coef: 1},
			{Var: em.x[i], Coef: -bigM},
		}, mip.LessEqual, 0)
	}

	for k, h := range em.homes {
		for v := 0; v < n; v++ {
			if v != in.Depot {
				enable := []mip.Term{{Var: em.s[k][v], Coef: 1}}
				for _, i := range inArcs[v] {
					enable = append(enable, mip.Term{Var: em.x[i], Coef: -1})
				}
				m.AddConstraint(fmt.Sprintf("dropoff[%d][%d]", h, v), enable, mip.LessEqual, 0)
			}

			walk := []mip.Term{{Var: em.s[k][v], Coef: 1}}
			for _, i := range inArcs[v] {
				walk = append(walk, mip.Term{Var: em.t[k][i], Coef: 1})
			}
			for _, i := range outArcs[v] {
				walk = append(walk, mip.Term{Var: em.t[k][i], Coef: -1})
			}
			rhs := 0.0
			if v == h {
				rhs = 1
			}
			m.AddConstraint(fmt.Sprintf("walk[%d][%d]", h, v), walk, mip.Equal, rhs)
		}
	}

	return em
}

// start encodes a seed solution as a variable assignment. It returns nil
// when the route reuses a directed arc, which the model cannot express.
func (em *exactModel) start(seed *domain.Solution, table *DistanceTable) []float64 {
	x := make([]float64, em.model.NumVars())

	routeArcs := seed.Route.Arcs()
	m := float64(len(routeArcs))
	for i, a := range routeArcs {
		id, ok := em.arcID[a]
		if !ok || x[em.x[id]] != 0 {
			return nil
		}
		x[em.x[id]] = 1
		x[em.f[id]] = m - float64(i)
	}
	x[em.f0] = m

	homeIndex := make(map[int]int, len(em.homes))
	for k, h := range em.homes {
		homeIndex[h] = k
	}
	for stop, hs := range seed.Dropoffs {
		for _, h := range hs {
			k := homeIndex[h]
			if x[em.s[k][stop]] == 1 {
				continue
			}
			x[em.s[k][stop]] = 1

			p := table.Path(stop, h)
			for i := 0; i+1 < len(p); i++ {
				id, ok := em.arcID[domain.Arc{From: p[i], To: p[i+1]}]
				if !ok {
					return nil
				}
				x[em.t[k][id]] = 1
			}
		}
	}

	return x
}

func (em *exactModel) selectedArcs(x []float64) []domain.Arc {
	var out []domain.Arc
	for i, a := range em.arcs {
		if x[em.x[i]] > 0.5 {
			out = append(out, a)
		}
	}
	return out
}

// DefaultMaxModelCells caps the dense relaxation of the exact model at
// about 32 MB of float64 entries.
const DefaultMaxModelCells = 4_000_000

// ExactSolver solves the joint formulation by branch and bound, seeded
// with the best warm-start candidate.
type ExactSolver struct {
	// MaxModelCells skips the search on models whose relaxation would hold
	// more entries; 0 means DefaultMaxModelCells and a negative value
	// disables the cap.
	MaxModelCells int
}

func (e ExactSolver) maxCells() int {
	if e.MaxModelCells == 0 {
		return DefaultMaxModelCells
	}
	return e.MaxModelCells
}

// fallback reports the warm start when the search could not improve on it.
func fallback(seed *domain.Solution, lower float64) *domain.Solution {
	seed.Status = domain.StatusFeasible
	seed.LowerBound = clampBound(lower, seed.Cost)
	return seed
}

func (e ExactSolver) Solve(ctx context.Context, in *domain.Instance, opts SolveOptions) (*domain.Solution, error) {
	log := opts.logger().WithField("instance", in.Name)

	table, err := NewDistanceTable(in.Graph)
	if err != nil {
		return nil, fmt.Errorf("exact solver: %w", err)
	}

	seed, err := WarmStart(in, table, opts.warmStart())
	if err != nil {
		return nil, fmt.Errorf("exact solver: %w", err)
	}
	log.WithField("cost", seed.Cost).Debug("exact solver: warm start selected")

	if len(in.Graph.Arcs()) == 0 {
		seed.Status = domain.StatusOptimal
		seed.LowerBound = seed.Cost
		return seed, nil
	}

	em := buildExactModel(in)
	cells := em.model.RelaxationCells()
	log.WithFields(logrus.Fields{
		"vars":        em.model.NumVars(),
		"constraints": em.model.NumConstraints(),
		"cells":       cells,
	}).Debug("exact solver: model built")

	if limit := e.maxCells(); limit > 0 && cells > limit {
		log.WithFields(logrus.Fields{
			"cells": cells,
			"limit": limit,
			"cost":  seed.Cost,
		}).Warn("exact solver: model too large, keeping warm start")
		return fallback(seed, 0), nil
	}

	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	start := em.start(seed, table)
	if start == nil {
		// The seed reuses an arc; staying home is always expressible.
		home, err := Evaluate(in, table, domain.Route{in.Depot})
		if err != nil {
			return nil, fmt.Errorf("exact solver: %w", err)
		}
		start = em.start(home, table)
	}

	mipOpts := mip.Options{
		Start:    start,
		MaxNodes: opts.MaxNodes,
		Logger:   log,
	}
	if opts.Verbose {
		mipOpts.LogEvery = 1000
	}

	res, err := mip.Solve(ctx, em.model, mipOpts)
	if err != nil {
		return nil, fmt.Errorf("exact solver: %w", err)
	}

	switch res.Status {
	case mip.Infeasible:
		return nil, fmt.Errorf("exact solver: %w", domain.ErrInfeasible)
	case mip.NoSolution:
		return nil, fmt.Errorf("exact solver: %w after %d nodes", domain.ErrNoSolutionFound, res.Nodes)
	}

	route, err := ReconstructCircuit(in.Depot, em.selectedArcs(res.X))
	if err != nil && !errors.Is(err, domain.ErrNoEdges) {
		return nil, fmt.Errorf("exact solver: %w", err)
	}

	sol, err := Evaluate(in, table, route)
	if err != nil {
		return nil, fmt.Errorf("exact solver: %w", err)
	}
	if !domain.SameCost(sol.Cost, res.Objective) {
		log.WithFields(logrus.Fields{
			"model_cost": res.Objective,
			"route_cost": sol.Cost,
		}).Warn("exact solver: model objective disagrees with route cost")
	}

	switch {
	case domain.Improves(seed.Cost, sol.Cost):
		// The search stopped on the stay-home start, or the seed reuses an arc.
		lower := res.LowerBound
		if res.Status == mip.Optimal {
			log.WithField("seed_cost", seed.Cost).Warn("exact solver: seed beats the model optimum")
			lower = 0
		}
		sol = fallback(seed, lower)
	case res.Status == mip.Optimal:
		sol.Status = domain.StatusOptimal
		sol.LowerBound = sol.Cost
	default:
		sol.Status = domain.StatusFeasible
		sol.LowerBound = clampBound(res.LowerBound, sol.Cost)
	}

	log.WithFields(logrus.Fields{
		"status": sol.Status,
		"cost":   sol.Cost,
		"bound":  sol.LowerBound,
		"nodes":  res.Nodes,
	}).Info("exact solver: finished")

	return sol, nil
}

// clampBound keeps a reported lower bound within [0, cost].
func clampBound(bound, cost float64) float64 {
	if math.IsNaN(bound) || bound < 0 {
		return 0
	}
	return math.Min(bound, cost)
}
