package services

import (
	"dropoff-route-service/internal/domain"
	"math/rand"
)

// GenerateRandomCycle walks from depot to uniformly random neighbours until a
// location repeats. A walk p0..pm that hits pi again is closed as
// p0..pm, pi, pi-1, ..., p0. No directed arc is used twice.
func GenerateRandomCycle(rng *rand.Rand, g *domain.Graph, depot int) domain.Route {
	walk := domain.Route{depot}
	firstSeen := map[int]int{depot: 0}

	cur := depot
	for {
		nbrs := g.Neighbors(cur)
		if len(nbrs) == 0 {
			return walk
		}

		next := nbrs[rng.Intn(len(nbrs))]
		walk = append(walk, next)

		if i, seen := firstSeen[next]; seen {
			out := make(domain.Route, 0, len(walk)+i)
			out = append(out, walk...)
			for k := i - 1; k >= 0; k-- {
				out = append(out, walk[k])
			}
			return out
		}

		firstSeen[next] = len(walk) - 1
		cur = next
	}
}
