package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"fmt"
)

// MaxBruteForceArcs caps exhaustive enumeration at 2^22 arc subsets.
const MaxBruteForceArcs = 22

// BruteForce enumerates every subset of directed arcs, keeps those forming a
// single circuit through the depot and returns the cheapest. It exists to
// check the exact solver on tiny instances.
func BruteForce(ctx context.Context, in *domain.Instance, table *DistanceTable) (*domain.Solution, error) {
	arcs := in.Graph.Arcs()
	if len(arcs) > MaxBruteForceArcs {
		return nil, fmt.Errorf(
			"brute force: %w: %d arcs, limit %d",
			domain.ErrInstanceTooLarge, len(arcs), MaxBruteForceArcs,
		)
	}

	best, err := Evaluate(in, table, domain.Route{in.Depot})
	if err != nil {
		return nil, fmt.Errorf("brute force: %w", err)
	}

	balance := make([]int, in.Graph.Len())
	selected := make([]domain.Arc, 0, len(arcs))

	for mask := 1; mask < 1<<len(arcs); mask++ {
		if mask&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("brute force: %w", err)
			}
		}

		for i := range balance {
			balance[i] = 0
		}
		selected = selected[:0]
		for i, a := range arcs {
			if mask&(1<<i) != 0 {
				balance[a.From]++
				balance[a.To]--
				selected = append(selected, a)
			}
		}
		if !balanced(balance) {
			continue
		}

		route, err := ReconstructCircuit(in.Depot, selected)
		if err != nil {
			continue
		}
		sol, err := Evaluate(in, table, route)
		if err != nil {
			return nil, fmt.Errorf("brute force: %w", err)
		}
		if sol.Cost < best.Cost {
			best = sol
		}
	}

	best.Status = domain.StatusOptimal
	best.LowerBound = best.Cost
	return best, nil
}

func balanced(balance []int) bool {
	for _, b := range balance {
		if b != 0 {
			return false
		}
	}
	return true
}
