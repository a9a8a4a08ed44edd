package domain

// Status is the outcome of one optimisation attempt.
type Status int

const (
	StatusUnknown Status = iota
	// The cost is provably minimal.
	StatusOptimal
	// A feasible solution was found but optimality is not proven.
	StatusFeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	default:
		return "unknown"
	}
}

// Solution is the result of solving one instance.
type Solution struct {
	Status    Status
	Cost      float64
	DriveCost float64
	WalkCost  float64
	Route     Route
	Dropoffs  Assignment
	// LowerBound is the best proven bound on the optimum; equal to Cost when optimal.
	LowerBound float64
}

// Optimal reports whether the solution is provably minimal.
func (s *Solution) Optimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// Gap returns the relative distance between the cost and the lower bound.
func (s *Solution) Gap() float64 {
	if s == nil || s.Cost == 0 {
		return 0
	}
	gap := (s.Cost - s.LowerBound) / s.Cost
	if gap < 0 {
		return 0
	}
	return gap
}

// DropoffOrder lists the dropoff locations in order of first appearance on
// the route; stops off the route, if any, follow in ascending order.
func (s *Solution) DropoffOrder() []int {
	order := make([]int, 0, len(s.Dropoffs))
	listed := make(map[int]bool, len(s.Dropoffs))
	for _, v := range s.Route.Vertices() {
		if _, ok := s.Dropoffs[v]; ok {
			order = append(order, v)
			listed[v] = true
		}
	}
	for _, v := range s.Dropoffs.Dropoffs() {
		if !listed[v] {
			order = append(order, v)
		}
	}
	return order
}
