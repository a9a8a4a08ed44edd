package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// NoEdge marks a missing edge in an adjacency matrix.
// It is distinct from every valid weight, including zero.
var NoEdge = math.Inf(1)

// Arc is one orientation of an undirected edge.
type Arc struct {
	From, To int
}

// Graph is an immutable weighted undirected graph over dense location indices.
// Each undirected edge is exposed as two arcs.
type Graph struct {
	n       int
	weights []float64 // row-major n*n, NoEdge where absent
	arcs    []Arc
	wg      *simple.WeightedUndirectedGraph
}

// BuildGraph validates an adjacency matrix and builds the graph.
//
// The matrix must be square and symmetric, off-diagonal weights must be
// positive, the diagonal must carry no edge (0 is tolerated) and the graph
// must be connected.
func BuildGraph(adjacency [][]float64) (*Graph, error) {
	n := len(adjacency)
	if n == 0 {
		return nil, fmt.Errorf("build graph: %w: no locations", ErrMalformedInstance)
	}

	g := &Graph{
		n:       n,
		weights: make([]float64, n*n),
		wg:      simple.NewWeightedUndirectedGraph(0, NoEdge),
	}
	for i := 0; i < n; i++ {
		g.wg.AddNode(simple.Node(i))
	}

	for i, row := range adjacency {
		if len(row) != n {
			return nil, fmt.Errorf(
				"build graph: %w: row %d has %d entries, want %d",
				ErrMalformedInstance, i, len(row), n,
			)
		}

		for j, w := range row {
			if math.IsNaN(w) {
				return nil, fmt.Errorf("build graph: %w: NaN weight at (%d,%d)", ErrMalformedInstance, i, j)
			}

			if i == j {
				// A zero diagonal is the conventional "distance to self", not a loop.
				if w != 0 && !math.IsInf(w, 1) {
					return nil, fmt.Errorf("build graph: %w: self loop at %d", ErrMalformedInstance, i)
				}
				g.weights[i*n+j] = NoEdge
				continue
			}

			if w < 0 {
				return nil, fmt.Errorf("build graph: %w: negative weight %g at (%d,%d)", ErrMalformedInstance, w, i, j)
			}
			if w == 0 {
				return nil, fmt.Errorf("build graph: %w: zero weight at (%d,%d)", ErrMalformedInstance, i, j)
			}

			other := adjacency[j][i]
			if math.IsInf(w, 1) != math.IsInf(other, 1) || (!math.IsInf(w, 1) && math.Abs(w-other) > 1e-9) {
				return nil, fmt.Errorf(
					"build graph: %w: asymmetric entries (%d,%d)=%g (%d,%d)=%g",
					ErrMalformedInstance, i, j, w, j, i, other,
				)
			}

			g.weights[i*n+j] = w
			if !math.IsInf(w, 1) {
				g.arcs = append(g.arcs, Arc{From: i, To: j})
				if i < j {
					g.wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: w})
				}
			}
		}
	}

	if comps := topo.ConnectedComponents(g.wg); len(comps) > 1 {
		return nil, fmt.Errorf("build graph: %w: graph has %d connected components", ErrMalformedInstance, len(comps))
	}

	return g, nil
}

// Len returns the number of locations.
func (g *Graph) Len() int { return g.n }

// Weight returns the weight of edge (u, v) and whether it exists.
func (g *Graph) Weight(u, v int) (float64, bool) {
	if u < 0 || v < 0 || u >= g.n || v >= g.n {
		return 0, false
	}
	w := g.weights[u*g.n+v]
	if math.IsInf(w, 1) {
		return 0, false
	}
	return w, true
}

// Neighbors returns the locations adjacent to u in ascending order.
func (g *Graph) Neighbors(u int) []int {
	out := make([]int, 0)
	for v := 0; v < g.n; v++ {
		if _, ok := g.Weight(u, v); ok {
			out = append(out, v)
		}
	}
	return out
}

// Arcs returns both orientations of every edge, ordered by (From, To).
func (g *Graph) Arcs() []Arc {
	return append([]Arc(nil), g.arcs...)
}

// Weighted exposes the graph to gonum path algorithms.
func (g *Graph) Weighted() graph.WeightedUndirected { return g.wg }

// DriveCost sums the edge weights along route, once per traversal.
// Routes of zero or one location cost nothing.
func (g *Graph) DriveCost(route Route) (float64, error) {
	total := 0.0
	for i := 0; i+1 < len(route); i++ {
		w, ok := g.Weight(route[i], route[i+1])
		if !ok {
			return 0, fmt.Errorf("drive cost: %w: no edge %d -> %d at step %d", ErrInvalidRoute, route[i], route[i+1], i)
		}
		total += w
	}
	return total, nil
}
