package ports

// Contract for shortest walking distances between locations of one instance.
type DistanceProvider interface {
	// Return the shortest distance between two locations, +Inf when unreachable.
	Distance(from, to int) float64
	// Return one shortest path from -> to, both ends included.
	Path(from, to int) []int
}
