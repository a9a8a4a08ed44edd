package services

import (
	"dropoff-route-service/internal/domain"
	"fmt"
	"sort"
)

// ReconstructCircuit orders a multiset of directed arcs into one closed walk
// from start that uses every arc exactly once.
//
// An empty multiset yields [start] together with ErrNoEdges, which callers
// may treat as "the car stays home". Unbalanced degrees, or arcs not
// reachable on a single circuit through start, yield ErrNotEulerian.
func ReconstructCircuit(start int, arcs []domain.Arc) (domain.Route, error) {
	if len(arcs) == 0 {
		return domain.Route{start}, fmt.Errorf("reconstruct circuit: %w", domain.ErrNoEdges)
	}

	adj := make(map[int][]int)
	balance := make(map[int]int)
	for _, a := range arcs {
		adj[a.From] = append(adj[a.From], a.To)
		balance[a.From]++
		balance[a.To]--
	}
	for v, b := range balance {
		if b != 0 {
			return nil, fmt.Errorf(
				"reconstruct circuit: %w: location %d has out-degree minus in-degree %d",
				domain.ErrNotEulerian, v, b,
			)
		}
	}
	if len(adj[start]) == 0 {
		return nil, fmt.Errorf("reconstruct circuit: %w: start %d has no arcs", domain.ErrNotEulerian, start)
	}

	// Sorted descending so popping the tail follows the smallest neighbour.
	for v := range adj {
		sort.Sort(sort.Reverse(sort.IntSlice(adj[v])))
	}

	stack := []int{start}
	circuit := make(domain.Route, 0, len(arcs)+1)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		if out := adj[v]; len(out) > 0 {
			adj[v] = out[:len(out)-1]
			stack = append(stack, out[len(out)-1])
			continue
		}
		circuit = append(circuit, v)
		stack = stack[:len(stack)-1]
	}

	if len(circuit) != len(arcs)+1 {
		return nil, fmt.Errorf(
			"reconstruct circuit: %w: circuit from %d covers %d of %d arcs",
			domain.ErrNotEulerian, start, len(circuit)-1, len(arcs),
		)
	}

	for i, j := 0, len(circuit)-1; i < j; i, j = i+1, j-1 {
		circuit[i], circuit[j] = circuit[j], circuit[i]
	}
	return circuit, nil
}
