package solve

import (
	"context"
	"fmt"

	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// CitiesSolver places one tower on every city. Always feasible since a
// tower covers its own cell, but the penalty is usually terrible on dense
// instances. Useful as a baseline and as a trivial fallback.
type CitiesSolver struct {
	sink Sink
}

// NewCitiesSolver creates a new baseline solver
func NewCitiesSolver(sink Sink) *CitiesSolver {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &CitiesSolver{sink: sink}
}

func (s *CitiesSolver) Name() string {
	return string(SolverCities)
}

// Run places a tower on each city cell. The grid must start without towers.
func (s *CitiesSolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	if g.NumTowers() > 0 {
		return nil, fmt.Errorf("grid already has %d towers: %w", g.NumTowers(), grid.ErrInvalidState)
	}

	sw := utils.NewStopwatch()
	placed := 0
	for _, city := range g.Cities() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := g.AddTower(city.X, city.Y); err != nil {
			return nil, fmt.Errorf("placing tower on city %s: %w", city, err)
		}
		placed++
	}

	if _, err := s.sink.Persist(g); err != nil {
		logger.Warn("failed to persist baseline placement", "error", err)
	}
	return buildResult(SolverCities, g, placed, sw), nil
}
