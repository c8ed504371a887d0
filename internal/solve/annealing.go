package solve

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/placement-opt/placement-core/internal/metrics"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// Neighbor policy names accepted by the annealing configuration.
const (
	NeighborRelocate = "relocate"
	NeighborFracture = "fracture"
)

// relocateAttempts caps how often a relocation is redrawn before the
// iteration is skipped
const relocateAttempts = 16

// fractureShare scales how much of the tower set a fracture perturbation
// removes at full temperature
const fractureShare = 0.25

// AnnealingSolver runs simulated annealing over tower placements. The
// temperature follows a Boltzmann schedule that is periodically re-annealed
// after a fixed iteration count, an acceptance stall, or a best-score
// stall. Infeasible intermediate states occur during perturbation but are
// never accepted; the returned placement additionally has every redundant
// tower stripped.
type AnnealingSolver struct {
	cfg       config.AnnealingConfig
	rng       *utils.RandSource
	objective Objective
	sink      Sink
	collector *metrics.Collector
}

// NewAnnealingSolver creates an annealing solver with the given seed
func NewAnnealingSolver(cfg *config.Config, seed int64, sink Sink, collector *metrics.Collector) *AnnealingSolver {
	if sink == nil {
		sink = DiscardSink{}
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &AnnealingSolver{
		cfg:       cfg.Annealing,
		rng:       utils.NewRandSource(seed),
		objective: PenaltyObjective{},
		sink:      sink,
		collector: collector,
	}
}

func (s *AnnealingSolver) Name() string {
	return string(SolverAnnealing)
}

// Run anneals from the grid's current placement. An empty grid is first
// seeded with a greedy construction. The grid is left holding the best
// placement found, with redundant towers removed.
func (s *AnnealingSolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	sw := utils.NewStopwatch()

	if g.NumTowers() == 0 {
		if _, err := NewGreedySolver(0, DiscardSink{}).Run(ctx, g); err != nil {
			return nil, fmt.Errorf("seeding annealing: %w", err)
		}
	}

	bestTowers := g.Towers()
	bestScore := s.objective.Evaluate(g)
	currentScore := bestScore

	schedule := 0
	sinceAccepted := 0
	sinceBest := 0
	iterations := 0

	for i := 0; i < s.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		iterations++
		s.collector.Inc(metrics.CounterIterations)

		temp := s.cfg.InitialTemp / math.Log(float64(schedule)+2)
		schedule++

		snapshot := g.Towers()
		if !s.perturb(g, temp) {
			if err := g.ReplaceAllTowers(snapshot); err != nil {
				return nil, fmt.Errorf("restoring after failed perturbation: %w", err)
			}
			continue
		}

		newScore := s.objective.Evaluate(g)
		delta := newScore - currentScore
		if delta < 0 || s.rng.Float64() < math.Exp(-delta/temp) {
			currentScore = newScore
			sinceAccepted = 0
			s.collector.Inc(metrics.CounterAccepted)

			if newScore < bestScore {
				bestScore = newScore
				bestTowers = g.Towers()
				sinceBest = 0
				s.collector.RecordBest(i, newScore)
				if _, err := s.sink.Persist(g); err != nil {
					logger.Warn("failed to persist annealing improvement", "error", err)
				}
			} else {
				sinceBest++
			}
		} else {
			if err := g.ReplaceAllTowers(snapshot); err != nil {
				return nil, fmt.Errorf("rejecting perturbation: %w", err)
			}
			sinceAccepted++
			sinceBest++
			s.collector.Inc(metrics.CounterRejected)
		}

		if schedule >= s.cfg.ReannealFixed ||
			sinceAccepted >= s.cfg.ReannealAccepted ||
			sinceBest >= s.cfg.ReannealBest {
			schedule = 0
			sinceAccepted = 0
			sinceBest = 0
			s.collector.Inc(metrics.CounterReanneals)
		}
	}

	if err := g.ReplaceAllTowers(bestTowers); err != nil {
		return nil, fmt.Errorf("restoring best placement: %w", err)
	}
	s.stripRedundant(g)
	if _, err := s.sink.Persist(g); err != nil {
		logger.Warn("failed to persist annealing result", "error", err)
	}
	return buildResult(SolverAnnealing, g, iterations, sw), nil
}

// perturb applies one neighbor move and reports whether it produced a valid
// grid. On false the caller restores the snapshot.
func (s *AnnealingSolver) perturb(g *grid.Grid, temp float64) bool {
	switch s.cfg.Neighbor {
	case NeighborFracture:
		return s.fracture(g, temp)
	default:
		return s.relocate(g)
	}
}

// relocate moves one random tower to a random nearby cell, redrawing the
// destination until the grid stays valid
func (s *AnnealingSolver) relocate(g *grid.Grid) bool {
	towers := g.Towers()
	if len(towers) == 0 {
		return false
	}
	tower := towers[s.rng.Intn(len(towers))]
	cells := s.sortedNeighborhood(g, tower, s.cfg.RelocateRadius)

	for attempt := 0; attempt < relocateAttempts; attempt++ {
		dst := cells[s.rng.Intn(len(cells))]
		if dst == tower || g.HasTower(dst) {
			continue
		}
		if err := g.MoveTower(tower, dst); err != nil {
			continue
		}
		if g.IsValid() {
			return true
		}
		if err := g.MoveTower(dst, tower); err != nil {
			return false
		}
	}
	return false
}

// fracture removes a temperature-proportional share of the towers, then
// repairs coverage by placing a tower at a random cell within service
// radius of each still-uncovered city
func (s *AnnealingSolver) fracture(g *grid.Grid, temp float64) bool {
	towers := g.Towers()
	if len(towers) == 0 {
		return false
	}
	frac := utils.ClampFloat64(temp/s.cfg.InitialTemp, 0, 1)
	n := utils.Max(1, int(frac*fractureShare*float64(len(towers))))

	s.rng.Shuffle(len(towers), func(i, j int) {
		towers[i], towers[j] = towers[j], towers[i]
	})
	for _, t := range towers[:n] {
		if err := g.RemoveTower(t.X, t.Y); err != nil {
			return false
		}
	}

	for {
		uncovered := g.Uncovered()
		if len(uncovered) == 0 {
			return true
		}
		city := uncovered[s.rng.Intn(len(uncovered))]
		cells := s.sortedNeighborhood(g, city, g.ServiceRadius())
		placed := false
		for _, offset := range s.rng.Perm(len(cells)) {
			dst := cells[offset]
			if g.HasTower(dst) {
				continue
			}
			if err := g.AddTower(dst.X, dst.Y); err != nil {
				return false
			}
			placed = true
			break
		}
		// The city's own cell is always a free fallback, so this only
		// trips if the grid state is corrupt.
		if !placed {
			return false
		}
	}
}

// stripRedundant removes every tower whose removal keeps the grid valid
func (s *AnnealingSolver) stripRedundant(g *grid.Grid) {
	for _, tower := range g.Towers() {
		if err := g.RemoveTower(tower.X, tower.Y); err != nil {
			continue
		}
		if !g.IsValid() {
			if err := g.AddTower(tower.X, tower.Y); err != nil {
				logger.Error("failed to restore tower during redundancy pass",
					"tower", tower.String(), "error", err)
				return
			}
		}
	}
}

// sortedNeighborhood returns the cells within radius of center, including
// center itself, in deterministic order so seeded draws are reproducible
func (s *AnnealingSolver) sortedNeighborhood(g *grid.Grid, center geometry.Point, radius int) []geometry.Point {
	within := g.Index().WithinRadius(center, radius, g.Dimension())
	cells := make([]geometry.Point, 0, len(within))
	for pt := range within {
		cells = append(cells, pt)
	}
	sort.Slice(cells, func(i, j int) bool { return geometry.Less(cells[i], cells[j]) })
	return cells
}
