package domain

import "fmt"

// Instance is one parsed problem: named locations, rider homes, a depot and the road graph.
type Instance struct {
	Name      string
	Locations []string
	Depot     int
	// Homes holds one entry per rider; several riders may share a home.
	Homes []int
	Graph *Graph

	index map[string]int
}

// NewInstance resolves names to indices and builds the graph.
func NewInstance(name string, locations, homes []string, depot string, adjacency [][]float64) (*Instance, error) {
	if len(adjacency) != len(locations) {
		return nil, fmt.Errorf(
			"new instance %s: %w: %d locations but %d adjacency rows",
			name, ErrMalformedInstance, len(locations), len(adjacency),
		)
	}

	index := make(map[string]int, len(locations))
	for i, loc := range locations {
		if _, dup := index[loc]; dup {
			return nil, fmt.Errorf("new instance %s: %w: duplicate location %q", name, ErrMalformedInstance, loc)
		}
		index[loc] = i
	}

	d, ok := index[depot]
	if !ok {
		return nil, fmt.Errorf("new instance %s: %w: unknown depot %q", name, ErrMalformedInstance, depot)
	}

	hs := make([]int, 0, len(homes))
	for _, h := range homes {
		i, ok := index[h]
		if !ok {
			return nil, fmt.Errorf("new instance %s: %w: unknown home %q", name, ErrMalformedInstance, h)
		}
		hs = append(hs, i)
	}

	g, err := BuildGraph(adjacency)
	if err != nil {
		return nil, fmt.Errorf("new instance %s: %w", name, err)
	}

	return &Instance{
		Name:      name,
		Locations: append([]string(nil), locations...),
		Depot:     d,
		Homes:     hs,
		Graph:     g,
		index:     index,
	}, nil
}

// Index returns the location index for a display name.
func (in *Instance) Index(name string) (int, bool) {
	i, ok := in.index[name]
	return i, ok
}

// LocationName returns the display name of location i.
func (in *Instance) LocationName(i int) string {
	if i < 0 || i >= len(in.Locations) {
		return fmt.Sprintf("#%d", i)
	}
	return in.Locations[i]
}

// RouteNames translates a route into display names.
func (in *Instance) RouteNames(r Route) []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = in.LocationName(v)
	}
	return out
}

// HomeCounts groups riders by home: home index to number of riders living there.
func (in *Instance) HomeCounts() map[int]int {
	out := make(map[int]int, len(in.Homes))
	for _, h := range in.Homes {
		out[h]++
	}
	return out
}
