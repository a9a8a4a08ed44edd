package dto

type DropoffResponse struct {
	Location string   `json:"location"`
	Homes    []string `json:"homes"`
}

type SolutionResponse struct {
	Instance   string            `json:"instance"`
	Status     string            `json:"status"`
	Cost       float64           `json:"cost"`
	DriveCost  float64           `json:"drive_cost"`
	WalkCost   float64           `json:"walk_cost"`
	LowerBound float64           `json:"lower_bound"`
	Baseline   float64           `json:"baseline"`
	Damage     float64           `json:"damage_percent"`
	Route      []string          `json:"route"`
	Dropoffs   []DropoffResponse `json:"dropoffs"`
}
