package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldReplace(t *testing.T) {
	feasible := &Bound{Instance: "a", Cost: 10}
	optimal := &Bound{Instance: "a", Cost: 10, Optimal: true}

	tests := []struct {
		name    string
		stored  *Bound
		cost    float64
		optimal bool
		want    bool
	}{
		{"first solve", nil, 12, false, true},
		{"better", feasible, 9, false, true},
		{"worse", feasible, 11, true, false},
		{"equal", feasible, 10, false, false},
		{"equal but proven", feasible, 10 + 1e-9, true, true},
		{"equal already proven", optimal, 10, true, false},
		{"better than proven", optimal, 9, false, true},
		{"noise", feasible, 10 - 1e-8, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldReplace(tt.stored, tt.cost, tt.optimal))
		})
	}
}
