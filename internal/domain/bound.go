package domain

import "time"

// Bound is the best known solution cost for an instance across runs.
type Bound struct {
	Instance  string
	Cost      float64
	Optimal   bool
	UpdatedAt time.Time
	RunID     string
}

// ShouldReplace decides whether a candidate bound supersedes the stored one.
// A strictly better cost always wins; an equal cost wins only by newly proving
// optimality. A nil stored bound is always replaced.
func ShouldReplace(stored *Bound, cost float64, optimal bool) bool {
	if stored == nil {
		return true
	}
	if Improves(cost, stored.Cost) {
		return true
	}
	return optimal && !stored.Optimal && SameCost(cost, stored.Cost)
}
