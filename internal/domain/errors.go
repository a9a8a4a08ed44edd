package domain

import "errors"

// Error kinds surfaced by instance solves. Callers match them with errors.Is.
var (
	// Adjacency data is unusable; the instance is skipped.
	ErrMalformedInstance = errors.New("malformed instance")
	// A route uses a pair of locations that is not an edge.
	ErrInvalidRoute = errors.New("invalid route")
	// The time budget ran out before any feasible solution was found.
	ErrNoSolutionFound = errors.New("no solution found")
	// The selected edges do not form a single circuit through the depot.
	ErrNotEulerian = errors.New("edge set is not eulerian")
	// The model was proven infeasible.
	ErrInfeasible = errors.New("model infeasible")
	// A solver selected no edges; the car never leaves the depot.
	ErrNoEdges = errors.New("no edges selected")
	// The instance is too large for exhaustive enumeration.
	ErrInstanceTooLarge = errors.New("instance too large")
)
