package services

import (
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/ports"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// DistanceTable holds all-pairs shortest walking distances for one graph.
// Build it once per instance and reuse it for every candidate route.
type DistanceTable struct {
	g    *domain.Graph
	n    int
	dist []float64
}

var _ ports.DistanceProvider = (*DistanceTable)(nil)

func NewDistanceTable(g *domain.Graph) (*DistanceTable, error) {
	paths, ok := path.FloydWarshall(g.Weighted())
	if !ok {
		return nil, fmt.Errorf("distance table: %w: negative cycle", domain.ErrMalformedInstance)
	}

	n := g.Len()
	t := &DistanceTable{g: g, n: n, dist: make([]float64, n*n)}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if u == v {
				continue
			}
			t.dist[u*n+v] = paths.Weight(int64(u), int64(v))
		}
	}
	return t, nil
}

func (t *DistanceTable) Distance(from, to int) float64 {
	return t.dist[from*t.n+to]
}

// Path returns a shortest path, always stepping to the lowest-indexed
// neighbour that stays on a shortest path.
func (t *DistanceTable) Path(from, to int) []int {
	out := []int{from}
	for cur := from; cur != to && len(out) <= t.n; {
		remaining := t.Distance(cur, to)
		next := -1
		for _, v := range t.g.Neighbors(cur) {
			w, _ := t.g.Weight(cur, v)
			if math.Abs(w+t.Distance(v, to)-remaining) <= 1e-9*math.Max(1, remaining) {
				next = v
				break
			}
		}
		if next < 0 {
			return nil
		}
		out = append(out, next)
		cur = next
	}
	return out
}

// AssignDropoffs sends every rider to the visited location nearest their
// home. Candidates are scanned in the given order and the first one reaching
// the minimum wins ties.
func AssignDropoffs(dist ports.DistanceProvider, homes, visited []int) (float64, domain.Assignment) {
	total := 0.0
	dropoffs := make(domain.Assignment)

	for _, h := range homes {
		best, bestDist := -1, math.Inf(1)
		for _, v := range visited {
			if d := dist.Distance(v, h); d < bestDist {
				best, bestDist = v, d
			}
		}
		if best < 0 {
			return math.Inf(1), domain.Assignment{}
		}
		total += bestDist
		dropoffs[best] = append(dropoffs[best], h)
	}

	return total, dropoffs
}

// Evaluate costs a closed route: driving along it and walking from the
// nearest stop on it.
func Evaluate(in *domain.Instance, dist ports.DistanceProvider, route domain.Route) (*domain.Solution, error) {
	drive, err := in.Graph.DriveCost(route)
	if err != nil {
		return nil, fmt.Errorf("evaluate route: %w", err)
	}

	walk, dropoffs := AssignDropoffs(dist, in.Homes, route.Vertices())
	return &domain.Solution{
		Cost:      domain.TotalCost(drive, walk),
		DriveCost: drive,
		WalkCost:  walk,
		Route:     append(domain.Route(nil), route...),
		Dropoffs:  dropoffs,
	}, nil
}

// BaselineCost is the cost of leaving every rider at the depot.
func BaselineCost(in *domain.Instance) float64 {
	from := path.DijkstraFrom(simple.Node(in.Depot), in.Graph.Weighted())
	total := 0.0
	for _, h := range in.Homes {
		total += domain.WalkingCostFactor * from.WeightTo(int64(h))
	}
	return total
}

// Damage expresses cost as a percentage of the baseline.
func Damage(cost, baseline float64) float64 {
	if baseline == 0 {
		return 100
	}
	return cost / baseline * 100
}
