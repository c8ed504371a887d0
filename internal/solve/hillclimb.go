package solve

import (
	"context"
	"fmt"
	"sort"

	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// HillClimbSolver runs first-improvement local search. Each pass walks a
// snapshot of the current towers; for each tower it first tries deleting
// it outright, then tries moving it to a randomly ordered nearby cell that
// strictly lowers the penalty while keeping every city covered. Passes
// repeat until one finds no improving move.
type HillClimbSolver struct {
	searchRadius int
	rng          *utils.RandSource
	objective    Objective
	sink         Sink
}

// NewHillClimbSolver creates a hill-climbing solver seeded for
// reproducible candidate ordering
func NewHillClimbSolver(cfg *config.Config, seed int64, sink Sink) *HillClimbSolver {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &HillClimbSolver{
		searchRadius: cfg.HillClimb.SearchRadius,
		rng:          utils.NewRandSource(seed),
		objective:    PenaltyObjective{},
		sink:         sink,
	}
}

func (s *HillClimbSolver) Name() string {
	return string(SolverHillClimb)
}

// Run climbs from the grid's current placement to a local optimum. An
// empty grid is first seeded with a greedy construction.
func (s *HillClimbSolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	sw := utils.NewStopwatch()

	if g.NumTowers() == 0 {
		if _, err := NewGreedySolver(0, DiscardSink{}).Run(ctx, g); err != nil {
			return nil, fmt.Errorf("seeding hill climb: %w", err)
		}
	}

	passes := 0
	for {
		if err := ctx.Err(); err != nil {
			break
		}
		improved, err := s.pass(g)
		if err != nil {
			return nil, err
		}
		passes++
		if !improved {
			break
		}
		if _, err := s.sink.Persist(g); err != nil {
			logger.Warn("failed to persist hill climb improvement", "error", err)
		}
	}

	return buildResult(SolverHillClimb, g, passes, sw), nil
}

// pass makes at most one improving change and reports whether it did.
// Iterates over a snapshot so the walk is unaffected by its own mutation.
func (s *HillClimbSolver) pass(g *grid.Grid) (bool, error) {
	for _, tower := range g.Towers() {
		if err := g.RemoveTower(tower.X, tower.Y); err != nil {
			return false, fmt.Errorf("removing tower %s: %w", tower, err)
		}
		if g.IsValid() {
			return true, nil
		}
		if err := g.AddTower(tower.X, tower.Y); err != nil {
			return false, fmt.Errorf("restoring tower %s: %w", tower, err)
		}

		current := s.objective.Evaluate(g)
		for _, dst := range s.shuffledNeighborhood(g, tower) {
			if g.HasTower(dst) {
				continue
			}
			if err := g.MoveTower(tower, dst); err != nil {
				return false, fmt.Errorf("moving tower %s to %s: %w", tower, dst, err)
			}
			if s.objective.Evaluate(g) < current {
				return true, nil
			}
			if err := g.MoveTower(dst, tower); err != nil {
				return false, fmt.Errorf("undoing move %s to %s: %w", dst, tower, err)
			}
		}
	}
	return false, nil
}

// shuffledNeighborhood returns the cells within the search radius of the
// tower, excluding the tower's own cell, in random order
func (s *HillClimbSolver) shuffledNeighborhood(g *grid.Grid, tower geometry.Point) []geometry.Point {
	within := g.Index().WithinRadius(tower, s.searchRadius, g.Dimension())
	cells := make([]geometry.Point, 0, len(within)-1)
	for pt := range within {
		if pt != tower {
			cells = append(cells, pt)
		}
	}
	// Sort before shuffling so the ordering depends only on the seed.
	sort.Slice(cells, func(i, j int) bool { return geometry.Less(cells[i], cells[j]) })
	s.rng.Shuffle(len(cells), func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})
	return cells
}
