package services

import (
	"dropoff-route-service/internal/domain"
	"math"
)

// NearestNeighborRoute drives from the depot to the closest unvisited home,
// repeatedly, then back to the depot. Legs follow shortest paths, so the
// route may pass a location more than once.
//
// It is a greedy step-by-step choice with no global optimisation; equal
// distances are broken by the lower location index so the result is
// deterministic.
func NearestNeighborRoute(in *domain.Instance, table *DistanceTable) domain.Route {
	remaining := make(map[int]struct{})
	for _, h := range in.Homes {
		if h != in.Depot {
			remaining[h] = struct{}{}
		}
	}

	route := domain.Route{in.Depot}
	current := in.Depot

	for len(remaining) > 0 {
		best, bestDist := -1, math.Inf(1)
		for h := range remaining {
			d := table.Distance(current, h)
			if d < bestDist || (d == bestDist && h < best) {
				best, bestDist = h, d
			}
		}
		if best < 0 {
			return domain.Route{in.Depot}
		}

		route = appendLeg(route, table.Path(current, best))
		delete(remaining, best)
		current = best
	}

	if current != in.Depot {
		route = appendLeg(route, table.Path(current, in.Depot))
	}
	return route
}

// appendLeg extends route with path, whose first element is the route's last.
func appendLeg(route domain.Route, path []int) domain.Route {
	if len(path) < 2 {
		return route
	}
	return append(route, path[1:]...)
}
