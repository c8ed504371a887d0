package solve

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// GreedySolver builds a feasible placement from scratch. Each round it
// finds the candidate cells that cover the most still-uncovered cities,
// widens the pool by a tolerance fraction of the next-best group, and
// commits the pool member whose tentative placement adds the least total
// penalty. Terminates because every committed tower covers at least one
// previously uncovered city.
type GreedySolver struct {
	tolerance float64
	sink      Sink
}

// candidate is one cell considered for placement in a greedy round
type candidate struct {
	point geometry.Point
	gain  int
}

// NewGreedySolver creates a greedy constructor. tolerance is the fraction
// of the next-best candidate group admitted to the penalty comparison.
func NewGreedySolver(tolerance float64, sink Sink) *GreedySolver {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &GreedySolver{tolerance: tolerance, sink: sink}
}

func (s *GreedySolver) Name() string {
	return string(SolverGreedy)
}

// Run places towers until every city is covered
func (s *GreedySolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	sw := utils.NewStopwatch()
	rounds := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uncovered := g.Uncovered()
		if len(uncovered) == 0 {
			break
		}

		pool := s.candidatePool(g, uncovered)
		if len(pool) == 0 {
			return nil, fmt.Errorf("no candidate can cover %d remaining cities: %w", len(uncovered), grid.ErrInvalidState)
		}

		best, err := s.cheapestCandidate(g, pool)
		if err != nil {
			return nil, err
		}
		if err := g.AddTower(best.X, best.Y); err != nil {
			return nil, fmt.Errorf("committing greedy choice %s: %w", best, err)
		}
		rounds++
	}

	if _, err := s.sink.Persist(g); err != nil {
		logger.Warn("failed to persist greedy placement", "error", err)
	}
	return buildResult(SolverGreedy, g, rounds, sw), nil
}

// candidatePool ranks every cell that could cover an uncovered city by how
// many uncovered cities it would newly cover, then returns the maximal
// group plus a tolerance fraction of the next-best group. Candidate order
// within each group is deterministic.
func (s *GreedySolver) candidatePool(g *grid.Grid, uncovered []geometry.Point) []geometry.Point {
	index := g.Index()
	dim := g.Dimension()
	radius := g.ServiceRadius()

	uncoveredSet := make(map[geometry.Point]struct{}, len(uncovered))
	for _, c := range uncovered {
		uncoveredSet[c] = struct{}{}
	}

	gains := make(map[geometry.Point]int)
	for _, city := range uncovered {
		for pt := range index.WithinRadius(city, radius, dim) {
			if g.HasTower(pt) {
				continue
			}
			if _, seen := gains[pt]; seen {
				continue
			}
			gain := 0
			for covered := range index.WithinRadius(pt, radius, dim) {
				if _, ok := uncoveredSet[covered]; ok {
					gain++
				}
			}
			gains[pt] = gain
		}
	}

	ranked := make([]candidate, 0, len(gains))
	for pt, gain := range gains {
		if gain > 0 {
			ranked = append(ranked, candidate{point: pt, gain: gain})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].gain != ranked[j].gain {
			return ranked[i].gain > ranked[j].gain
		}
		return geometry.Less(ranked[i].point, ranked[j].point)
	})
	if len(ranked) == 0 {
		return nil
	}

	maxGain := ranked[0].gain
	cut := 0
	for cut < len(ranked) && ranked[cut].gain == maxGain {
		cut++
	}
	pool := make([]geometry.Point, 0, cut)
	for _, c := range ranked[:cut] {
		pool = append(pool, c.point)
	}

	// Admit a fraction of the next-best group to widen the penalty search.
	if cut < len(ranked) && s.tolerance > 0 {
		nextGain := ranked[cut].gain
		next := cut
		for next < len(ranked) && ranked[next].gain == nextGain {
			next++
		}
		admit := int(math.Ceil(s.tolerance * float64(next-cut)))
		for _, c := range ranked[cut : cut+admit] {
			pool = append(pool, c.point)
		}
	}
	return pool
}

// cheapestCandidate tentatively places each pool member and keeps the one
// with the lowest resulting penalty, first-seen winning ties
func (s *GreedySolver) cheapestCandidate(g *grid.Grid, pool []geometry.Point) (geometry.Point, error) {
	best := pool[0]
	bestPenalty := math.Inf(1)
	for _, pt := range pool {
		if err := g.AddTower(pt.X, pt.Y); err != nil {
			return geometry.Point{}, fmt.Errorf("probing candidate %s: %w", pt, err)
		}
		p := g.Penalty()
		if err := g.RemoveTower(pt.X, pt.Y); err != nil {
			return geometry.Point{}, fmt.Errorf("retracting candidate %s: %w", pt, err)
		}
		if p < bestPenalty {
			bestPenalty = p
			best = pt
		}
	}
	return best, nil
}
