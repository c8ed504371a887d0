// Package solve implements the placement search strategies: naive
// city-stacking, greedy construction, hill-climbing, simulated annealing,
// integer-program solving, and the randomized-restart driver that combines
// them.
package solve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/placement-opt/placement-core/internal/metrics"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// SolverType identifies a search strategy
type SolverType string

const (
	// SolverCities places one tower on every city
	SolverCities SolverType = "cities"
	// SolverGreedy builds a placement by repeated best-coverage selection
	SolverGreedy SolverType = "greedy"
	// SolverHillClimb runs first-improvement local search
	SolverHillClimb SolverType = "hillclimb"
	// SolverAnnealing runs temperature-scheduled local search
	SolverAnnealing SolverType = "anneal"
	// SolverILP solves the exact linearized integer program
	SolverILP SolverType = "ilp"
	// SolverRandomILP solves the randomized relaxed integer program
	SolverRandomILP SolverType = "random-ilp"
	// SolverRestart runs concurrent seeded restarts of relaxation plus
	// local search
	SolverRestart SolverType = "restart"
)

// Solver searches for a tower placement on a grid
type Solver interface {
	// Run searches starting from the grid's current state and leaves the
	// grid holding the best placement found. The returned result
	// describes that placement.
	Run(ctx context.Context, g *grid.Grid) (*Result, error)

	// Name returns the solver's registry name.
	Name() string
}

// Result describes the placement a solver finished with
type Result struct {
	Solver     string
	Towers     []geometry.Point
	Penalty    float64
	Valid      bool
	Iterations int
	Elapsed    time.Duration
}

// Sink persists an improved placement. Implementations decide whether the
// candidate beats what is already stored.
type Sink interface {
	// Persist writes the grid's placement if it improves on the stored
	// one. Returns true when a write happened.
	Persist(g *grid.Grid) (bool, error)
}

// DiscardSink ignores every placement
type DiscardSink struct{}

// Persist reports no write and no error
func (DiscardSink) Persist(*grid.Grid) (bool, error) { return false, nil }

// meteredSink counts successful writes on the collector's persisted counter
type meteredSink struct {
	inner     Sink
	collector *metrics.Collector
}

func (m meteredSink) Persist(g *grid.Grid) (bool, error) {
	wrote, err := m.inner.Persist(g)
	if wrote {
		m.collector.Inc(metrics.CounterPersisted)
	}
	return wrote, err
}

// New creates a solver from a registry name
func New(name string, cfg *config.Config, sink Sink, collector *metrics.Collector) (Solver, error) {
	if sink == nil {
		sink = DiscardSink{}
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	sink = meteredSink{inner: sink, collector: collector}

	switch SolverType(name) {
	case SolverCities:
		return NewCitiesSolver(sink), nil
	case SolverGreedy:
		return NewGreedySolver(cfg.Greedy.Tolerance, sink), nil
	case SolverHillClimb:
		return NewHillClimbSolver(cfg, cfg.Solver.Seed, sink), nil
	case SolverAnnealing:
		return NewAnnealingSolver(cfg, cfg.Solver.Seed, sink, collector), nil
	case SolverILP:
		return NewILPSolver(cfg), nil
	case SolverRandomILP:
		return NewRandomILPSolver(cfg, cfg.Solver.Seed), nil
	case SolverRestart:
		return NewRestartDriver(cfg, sink, collector), nil
	default:
		return nil, fmt.Errorf("unknown solver %q (available: %v)", name, Names())
	}
}

// Names returns the registry names of all solvers, sorted
func Names() []string {
	names := []string{
		string(SolverCities),
		string(SolverGreedy),
		string(SolverHillClimb),
		string(SolverAnnealing),
		string(SolverILP),
		string(SolverRandomILP),
		string(SolverRestart),
	}
	sort.Strings(names)
	return names
}

// buildResult snapshots the grid into a result
func buildResult(name SolverType, g *grid.Grid, iterations int, sw *utils.Stopwatch) *Result {
	return &Result{
		Solver:     string(name),
		Towers:     g.Towers(),
		Penalty:    g.Penalty(),
		Valid:      g.IsValid(),
		Iterations: iterations,
		Elapsed:    sw.Elapsed(),
	}
}
