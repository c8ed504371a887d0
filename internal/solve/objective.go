package solve

import (
	"math"

	"github.com/placement-opt/placement-core/pkg/grid"
)

// Objective scores a tower placement. Lower scores are better.
type Objective interface {
	// Evaluate computes the score of the grid's current placement.
	Evaluate(g *grid.Grid) float64

	// Name returns the name of the objective function.
	Name() string
}

// PenaltyObjective scores a placement by its total interference penalty.
// Placements that leave any city uncovered score +Inf so they are never
// preferred over a feasible one.
type PenaltyObjective struct{}

func (PenaltyObjective) Name() string {
	return "penalty"
}

func (PenaltyObjective) Evaluate(g *grid.Grid) float64 {
	if !g.IsValid() {
		return math.Inf(1)
	}
	return g.Penalty()
}
