package services

import (
	"dropoff-route-service/internal/domain"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultSeeds is the number of random cycles tried when none is configured.
const DefaultSeeds = 5

// WarmStartOptions select the candidates scored by WarmStart.
type WarmStartOptions struct {
	Seeds int
	// Previous is a route from an earlier run, tried when non-empty.
	Previous domain.Route
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
}

// WarmStart scores the stay-at-depot route, the previous route, the
// nearest-neighbour tour and a set of distinct random cycles, returning the
// cheapest. The first candidate wins ties.
func WarmStart(in *domain.Instance, table *DistanceTable, opts WarmStartOptions) (*domain.Solution, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	rng := opts.Rand
	if rng == nil {
		rng = newRand(1)
	}
	seeds := opts.Seeds
	if seeds < 0 {
		seeds = 0
	}

	best, err := Evaluate(in, table, domain.Route{in.Depot})
	if err != nil {
		return nil, fmt.Errorf("warm start: %w", err)
	}
	seen := map[string]bool{routeKey(best.Route): true}

	consider := func(route domain.Route, origin string) {
		sol, err := Evaluate(in, table, route)
		if err != nil {
			log.WithError(err).WithField("origin", origin).Warn("warm start: candidate rejected")
			return
		}
		if sol.Cost < best.Cost {
			best = sol
		}
	}

	if len(opts.Previous) > 0 {
		if opts.Previous[0] != in.Depot || opts.Previous[len(opts.Previous)-1] != in.Depot {
			log.WithField("route", opts.Previous).Warn("warm start: previous route not closed at depot")
		} else {
			seen[routeKey(opts.Previous)] = true
			consider(opts.Previous, "previous")
		}
	}

	if nn := NearestNeighborRoute(in, table); !seen[routeKey(nn)] {
		seen[routeKey(nn)] = true
		consider(nn, "nearest-neighbor")
	}

	// Small graphs have few distinct cycles; duplicate draws are retried a
	// bounded number of times.
	for drawn, attempts := 0, 0; drawn < seeds && attempts < seeds*10; attempts++ {
		route := GenerateRandomCycle(rng, in.Graph, in.Depot)
		key := routeKey(route)
		if seen[key] {
			continue
		}
		seen[key] = true
		drawn++
		consider(route, "random")
	}

	best.Status = domain.StatusFeasible
	return best, nil
}

func routeKey(r domain.Route) string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	return b.String()
}
