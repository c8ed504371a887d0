package solve

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/placement-opt/placement-core/internal/ilp"
	"github.com/placement-opt/placement-core/internal/metrics"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
)

// countingSink records how often an improved placement was persisted
type countingSink struct {
	calls int
}

func (s *countingSink) Persist(*grid.Grid) (bool, error) {
	s.calls++
	return true, nil
}

func newTestGrid(t *testing.T, dim, serviceRadius, penaltyRadius int, cities ...geometry.Point) *grid.Grid {
	t.Helper()
	g := grid.New(dim, serviceRadius, penaltyRadius, nil)
	for _, c := range cities {
		if err := g.AddCity(c.X, c.Y); err != nil {
			t.Fatalf("adding city %v: %v", c, err)
		}
	}
	return g
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Solver.TimeBudget = "500ms"
	cfg.Solver.Workers = 2
	cfg.Solver.Seed = 1
	cfg.Annealing.MaxIterations = 200
	cfg.ILP.TimeLimit = "5s"
	return cfg
}

func TestCitiesSolverPlacesTowerPerCity(t *testing.T) {
	g := newTestGrid(t, 5, 1, 2,
		geometry.NewPoint(0, 0),
		geometry.NewPoint(2, 2),
		geometry.NewPoint(4, 4),
	)
	sink := &countingSink{}

	result, err := NewCitiesSolver(sink).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
	if len(result.Towers) != 3 {
		t.Fatalf("expected 3 towers, got %d", len(result.Towers))
	}
	if sink.calls != 1 {
		t.Fatalf("expected 1 persist call, got %d", sink.calls)
	}
}

func TestCitiesSolverRejectsPopulatedGrid(t *testing.T) {
	g := newTestGrid(t, 5, 1, 2, geometry.NewPoint(2, 2))
	if err := g.AddTower(0, 0); err != nil {
		t.Fatalf("adding tower: %v", err)
	}

	_, err := NewCitiesSolver(nil).Run(context.Background(), g)
	if err == nil {
		t.Fatalf("expected error on populated grid")
	}
}

func TestGreedyCoversAllCities(t *testing.T) {
	g := newTestGrid(t, 7, 2, 3,
		geometry.NewPoint(0, 0),
		geometry.NewPoint(0, 6),
		geometry.NewPoint(6, 0),
		geometry.NewPoint(6, 6),
		geometry.NewPoint(3, 3),
	)

	result, err := NewGreedySolver(0.1, nil).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
	if len(result.Towers) > 5 {
		t.Fatalf("greedy placed %d towers for 5 cities", len(result.Towers))
	}
}

func TestGreedyIsDeterministic(t *testing.T) {
	cities := []geometry.Point{
		geometry.NewPoint(1, 1),
		geometry.NewPoint(1, 5),
		geometry.NewPoint(5, 1),
		geometry.NewPoint(5, 5),
	}

	first, err := NewGreedySolver(0.5, nil).Run(context.Background(), newTestGrid(t, 7, 2, 3, cities...))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := NewGreedySolver(0.5, nil).Run(context.Background(), newTestGrid(t, 7, 2, 3, cities...))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Towers) != len(second.Towers) {
		t.Fatalf("runs placed %d and %d towers", len(first.Towers), len(second.Towers))
	}
	for i := range first.Towers {
		if first.Towers[i] != second.Towers[i] {
			t.Fatalf("tower %d differs: %v vs %v", i, first.Towers[i], second.Towers[i])
		}
	}
}

func TestHillClimbImprovesBaseline(t *testing.T) {
	cities := []geometry.Point{
		geometry.NewPoint(2, 2),
		geometry.NewPoint(2, 3),
		geometry.NewPoint(3, 2),
		geometry.NewPoint(3, 3),
	}
	g := newTestGrid(t, 8, 2, 4, cities...)
	if _, err := NewCitiesSolver(nil).Run(context.Background(), g); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	baseline := g.Penalty()

	result, err := NewHillClimbSolver(testConfig(), 42, nil).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
	if result.Penalty > baseline {
		t.Fatalf("hill climb worsened penalty: %f > %f", result.Penalty, baseline)
	}
	// Four adjacent cities need only one tower at service radius 2.
	if len(result.Towers) != 1 {
		t.Fatalf("expected a single tower, got %d", len(result.Towers))
	}
}

func TestHillClimbSeedsEmptyGrid(t *testing.T) {
	g := newTestGrid(t, 6, 2, 3, geometry.NewPoint(1, 1), geometry.NewPoint(4, 4))

	result, err := NewHillClimbSolver(testConfig(), 7, nil).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
}

func TestAnnealingNeverReturnsWorseThanSeed(t *testing.T) {
	cities := []geometry.Point{
		geometry.NewPoint(1, 1),
		geometry.NewPoint(1, 4),
		geometry.NewPoint(4, 1),
		geometry.NewPoint(4, 4),
	}
	g := newTestGrid(t, 6, 2, 3, cities...)
	if _, err := NewGreedySolver(0, nil).Run(context.Background(), g); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	seedPenalty := g.Penalty()

	collector := metrics.NewCollector()
	result, err := NewAnnealingSolver(testConfig(), 11, nil, collector).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
	if result.Penalty > seedPenalty+1e-9 {
		t.Fatalf("annealing worsened penalty: %f > %f", result.Penalty, seedPenalty)
	}
	if collector.Counter(metrics.CounterIterations) == 0 {
		t.Fatalf("expected iteration counter to advance")
	}
}

func TestAnnealingFracturePolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Annealing.Neighbor = NeighborFracture
	g := newTestGrid(t, 6, 2, 3,
		geometry.NewPoint(0, 0),
		geometry.NewPoint(5, 5),
	)

	result, err := NewAnnealingSolver(cfg, 3, nil, nil).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
}

func TestRestartDriverFindsPlacement(t *testing.T) {
	cfg := testConfig()
	g := newTestGrid(t, 5, 1, 2,
		geometry.NewPoint(1, 1),
		geometry.NewPoint(3, 3),
	)

	collector := metrics.NewCollector()
	result, err := NewRestartDriver(cfg, nil, collector).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid placement")
	}
	if collector.Counter(metrics.CounterRestarts) == 0 {
		t.Fatalf("expected at least one completed restart cycle")
	}
	if result.Penalty <= 0 {
		t.Fatalf("expected positive penalty, got %f", result.Penalty)
	}
}

func TestPenaltyObjectiveInfeasibleIsInf(t *testing.T) {
	g := newTestGrid(t, 5, 1, 2, geometry.NewPoint(2, 2))

	score := PenaltyObjective{}.Evaluate(g)
	if !math.IsInf(score, 1) {
		t.Fatalf("expected +Inf for uncovered city, got %f", score)
	}

	if err := g.AddTower(2, 2); err != nil {
		t.Fatalf("adding tower: %v", err)
	}
	score = PenaltyObjective{}.Evaluate(g)
	if score != g.Penalty() {
		t.Fatalf("expected penalty %f, got %f", g.Penalty(), score)
	}
}

func TestRegistryNames(t *testing.T) {
	names := Names()
	if len(names) != 7 {
		t.Fatalf("expected 7 solvers, got %d", len(names))
	}

	cfg := testConfig()
	for _, name := range names {
		s, err := New(name, cfg, nil, nil)
		if err != nil {
			t.Fatalf("creating solver %s: %v", name, err)
		}
		if s.Name() != name {
			t.Fatalf("solver %s reports name %s", name, s.Name())
		}
	}

	if _, err := New("does-not-exist", cfg, nil, nil); err == nil {
		t.Fatalf("expected error for unknown solver")
	}
}

func TestSolverRespectsCancelledContext(t *testing.T) {
	g := newTestGrid(t, 5, 1, 2, geometry.NewPoint(2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGreedySolver(0, nil).Run(ctx, g); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRestartDriverHonorsBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Solver.TimeBudget = "200ms"
	g := newTestGrid(t, 5, 1, 2, geometry.NewPoint(2, 2))

	start := time.Now()
	if _, err := NewRestartDriver(cfg, nil, nil).Run(context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("driver overran its budget: %s", elapsed)
	}
}

func TestRestartDriverAbandonsFailingWorkers(t *testing.T) {
	cfg := testConfig()
	cfg.Solver.TimeBudget = "10s"
	// A zero relaxation time limit makes every cycle fail immediately;
	// workers must give up instead of spinning out the whole budget.
	cfg.ILP.TimeLimit = "0s"
	g := newTestGrid(t, 5, 1, 2, geometry.NewPoint(2, 2))

	start := time.Now()
	_, err := NewRestartDriver(cfg, nil, nil).Run(context.Background(), g)
	if err == nil {
		t.Fatal("expected run without a working relaxation to fail")
	}
	if !errors.Is(err, ilp.ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("workers kept cycling for %s instead of abandoning", elapsed)
	}
}

func TestPersistCounterTracksSinkWrites(t *testing.T) {
	cfg := testConfig()
	g := newTestGrid(t, 3, 1, 2, geometry.NewPoint(1, 1))

	sink := &countingSink{}
	collector := metrics.NewCollector()
	solver, err := New(string(SolverCities), cfg, sink, collector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := solver.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.calls == 0 {
		t.Fatal("expected the sink to be written")
	}
	if got := collector.Counter(metrics.CounterPersisted); got != int64(sink.calls) {
		t.Fatalf("persisted counter = %d, sink saw %d writes", got, sink.calls)
	}
	if result.Elapsed <= 0 {
		t.Fatalf("expected a positive elapsed time, got %s", result.Elapsed)
	}
}
