package dto

import "time"

type BoundResponse struct {
	Instance  string    `json:"instance"`
	Cost      float64   `json:"cost"`
	Optimal   bool      `json:"optimal"`
	UpdatedAt time.Time `json:"updated_at"`
	RunID     string    `json:"run_id,omitempty"`
}

type ListBoundsResponse struct {
	Total   int             `json:"total"`
	Optimal int             `json:"optimal"`
	Bounds  []BoundResponse `json:"bounds"`
}
