package domain

import (
	"fmt"
	"math"
	"sort"
)

// Route is the car's closed walk as location indices, starting and ending at
// the depot. The single-element route [depot] means the car never leaves.
type Route []int

// Rotate returns the same cycle started at position k.
// The result is closed again at its new first location.
func (r Route) Rotate(k int) Route {
	if len(r) < 2 {
		return append(Route(nil), r...)
	}
	cycle := r[:len(r)-1]
	k = ((k % len(cycle)) + len(cycle)) % len(cycle)

	out := make(Route, 0, len(r))
	out = append(out, cycle[k:]...)
	out = append(out, cycle[:k]...)
	return append(out, out[0])
}

// Vertices returns the distinct locations of the route in order of first appearance.
func (r Route) Vertices() []int {
	seen := make(map[int]bool, len(r))
	out := make([]int, 0, len(r))
	for _, v := range r {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Arcs returns the directed arcs traversed by the route, one per step.
func (r Route) Arcs() []Arc {
	if len(r) < 2 {
		return nil
	}
	out := make([]Arc, 0, len(r)-1)
	for i := 0; i+1 < len(r); i++ {
		out = append(out, Arc{From: r[i], To: r[i+1]})
	}
	return out
}

// Assignment maps a dropoff location to the homes of the riders leaving the car there.
type Assignment map[int][]int

// Dropoffs returns the assignment keys in ascending order.
func (a Assignment) Dropoffs() []int {
	keys := make([]int, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Riders returns how many riders the assignment covers.
func (a Assignment) Riders() int {
	n := 0
	for _, hs := range a {
		n += len(hs)
	}
	return n
}

// Validate checks a route against the graph and an assignment against the
// route and the rider list. A solution must pass before it is persisted.
func Validate(g *Graph, depot int, homes []int, route Route, dropoffs Assignment) error {
	if len(route) == 0 {
		return fmt.Errorf("validate: %w: empty route", ErrInvalidRoute)
	}
	if route[0] != depot || route[len(route)-1] != depot {
		return fmt.Errorf("validate: %w: route does not start and end at depot %d", ErrInvalidRoute, depot)
	}
	if _, err := g.DriveCost(route); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	onRoute := make(map[int]bool, len(route))
	for _, v := range route {
		onRoute[v] = true
	}

	want := make(map[int]int, len(homes))
	for _, h := range homes {
		want[h]++
	}
	for stop, hs := range dropoffs {
		if !onRoute[stop] {
			return fmt.Errorf("validate: %w: dropoff %d not on route", ErrInvalidRoute, stop)
		}
		for _, h := range hs {
			want[h]--
		}
	}
	for h, n := range want {
		if n != 0 {
			return fmt.Errorf("validate: %w: home %d covered %d times too few", ErrInvalidRoute, h, n)
		}
	}
	return nil
}

// Cost factors applied to distances. Stored bounds depend on these exact values.
const (
	DrivingCostFactor = 2.0 / 3.0
	WalkingCostFactor = 1.0
)

// CostTolerance is the relative threshold under which two costs are considered equal.
const CostTolerance = 1e-6

// TotalCost combines driving and walking distance into the objective value.
func TotalCost(drive, walk float64) float64 {
	return DrivingCostFactor*drive + WalkingCostFactor*walk
}

// Improves reports whether next is strictly better than prev beyond the tolerance.
func Improves(next, prev float64) bool {
	return next < prev-CostTolerance*math.Max(1, math.Abs(prev))
}

// SameCost reports whether two costs are equal within the tolerance.
func SameCost(a, b float64) bool {
	return math.Abs(a-b) <= CostTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
