package solve

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-opt/placement-core/internal/ilp"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// ILPSolver solves the exact linearized integer program. Only viable on
// small instances; larger ones fail fast with the model-size error.
type ILPSolver struct {
	timeLimit time.Duration
	maxRows   int
}

// NewILPSolver creates an exact integer-program solver
func NewILPSolver(cfg *config.Config) *ILPSolver {
	return &ILPSolver{
		timeLimit: cfg.GetILPTimeLimit(),
		maxRows:   cfg.ILP.MaxRows,
	}
}

func (s *ILPSolver) Name() string {
	return string(SolverILP)
}

// Run encodes the instance, solves it, and installs the decoded towers.
// The grid must start without towers.
func (s *ILPSolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	if g.NumTowers() > 0 {
		return nil, fmt.Errorf("grid already has %d towers: %w", g.NumTowers(), grid.ErrInvalidState)
	}
	sw := utils.NewStopwatch()

	problem, err := ilp.NewExact(g, s.timeLimit, s.maxRows)
	if err != nil {
		return nil, err
	}
	towers, err := problem.Solve(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.ReplaceAllTowers(towers); err != nil {
		return nil, fmt.Errorf("installing solved placement: %w", err)
	}
	return buildResult(SolverILP, g, 1, sw), nil
}

// RandomILPSolver solves the randomized relaxed integer program: coverage
// constraints with a seeded perturbed objective. Fast and feasible, but
// penalty-blind; its placements exist to seed local search.
type RandomILPSolver struct {
	seed         int64
	perturbation float64
	timeLimit    time.Duration
}

// NewRandomILPSolver creates a relaxed solver with the given seed
func NewRandomILPSolver(cfg *config.Config, seed int64) *RandomILPSolver {
	return &RandomILPSolver{
		seed:         seed,
		perturbation: cfg.ILP.Perturbation,
		timeLimit:    cfg.GetILPTimeLimit(),
	}
}

func (s *RandomILPSolver) Name() string {
	return string(SolverRandomILP)
}

// Run installs a relaxation-derived feasible placement. The grid must
// start without towers.
func (s *RandomILPSolver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	if g.NumTowers() > 0 {
		return nil, fmt.Errorf("grid already has %d towers: %w", g.NumTowers(), grid.ErrInvalidState)
	}
	sw := utils.NewStopwatch()

	problem := ilp.NewRelaxed(g, s.seed, s.perturbation, s.timeLimit)
	towers, err := problem.Solve(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.ReplaceAllTowers(towers); err != nil {
		return nil, fmt.Errorf("installing relaxed placement: %w", err)
	}
	return buildResult(SolverRandomILP, g, 1, sw), nil
}
