package solve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/placement-opt/placement-core/internal/ilp"
	"github.com/placement-opt/placement-core/internal/metrics"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// RestartDriver runs independent restart workers concurrently until the
// wall-clock budget expires. Each worker owns a private clone of the grid
// and an independent seed; a restart cycle derives a fresh feasible
// placement from the randomized relaxation and refines it by hill
// climbing. Workers share nothing mutable except the sink, whose own
// read-before-write comparison arbitrates concurrent improvements.
type RestartDriver struct {
	cfg       *config.Config
	sink      Sink
	collector *metrics.Collector

	mu          sync.Mutex
	bestTowers  []geometry.Point
	bestPenalty float64
	haveBest    bool
}

// NewRestartDriver creates the concurrent restart driver
func NewRestartDriver(cfg *config.Config, sink Sink, collector *metrics.Collector) *RestartDriver {
	if sink == nil {
		sink = DiscardSink{}
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &RestartDriver{
		cfg:       cfg,
		sink:      sink,
		collector: collector,
	}
}

func (d *RestartDriver) Name() string {
	return string(SolverRestart)
}

// Run launches the workers and blocks until the time budget or the context
// expires, then installs the best placement found on the grid. The grid
// must start without towers. Finishing the budget without a single
// feasible placement is reported as an error.
func (d *RestartDriver) Run(ctx context.Context, g *grid.Grid) (*Result, error) {
	if g.NumTowers() > 0 {
		return nil, fmt.Errorf("grid already has %d towers: %w", g.NumTowers(), grid.ErrInvalidState)
	}
	sw := utils.NewBudgetStopwatch(d.cfg.GetTimeBudget())

	runCtx, cancel := context.WithTimeout(ctx, d.cfg.GetTimeBudget())
	defer cancel()

	workers := d.cfg.Solver.Workers
	baseSeed := d.cfg.Solver.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	runID := utils.GenerateRunID()
	logger.Info("starting restart driver",
		"run_id", runID,
		"workers", workers,
		"budget", d.cfg.GetTimeBudget().String())

	progressDone := make(chan struct{})
	go d.reportProgress(runCtx, sw, progressDone)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			d.worker(runCtx, g.Clone(), idx, baseSeed+int64(idx)*7919)
		}(i)
	}
	wg.Wait()
	close(progressDone)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.haveBest {
		return nil, fmt.Errorf("no feasible placement found within budget %s: %w",
			d.cfg.GetTimeBudget(), ilp.ErrNoSolution)
	}
	if err := g.ReplaceAllTowers(d.bestTowers); err != nil {
		return nil, fmt.Errorf("installing best restart placement: %w", err)
	}
	restarts := int(d.collector.Counter(metrics.CounterRestarts))
	return buildResult(SolverRestart, g, restarts, sw), nil
}

// progressInterval paces the elapsed/best-so-far log line during long runs.
const progressInterval = 10 * time.Second

// reportProgress emits a periodic status line until the run finishes
func (d *RestartDriver) reportProgress(ctx context.Context, sw *utils.Stopwatch, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			d.mu.Lock()
			best, haveBest := d.bestPenalty, d.haveBest
			d.mu.Unlock()
			attrs := []any{
				"elapsed", sw.Elapsed().Round(time.Second).String(),
				"remaining", sw.Remaining().Round(time.Second).String(),
				"restarts", d.collector.Counter(metrics.CounterRestarts),
			}
			if haveBest {
				attrs = append(attrs, "best_penalty", best)
			}
			logger.Info("restart progress", attrs...)
		}
	}
}

// cycleFailureLimit abandons a worker after this many consecutive failed
// cycles; a cycle that fails instantly would otherwise hot-loop for the
// whole budget and flood the log.
const cycleFailureLimit = 5

// worker runs restart cycles on its private grid until the context expires
// or too many consecutive cycles fail
func (d *RestartDriver) worker(ctx context.Context, g *grid.Grid, index int, seed int64) {
	workerID := utils.GenerateWorkerID(index)
	log := logger.With("worker_id", workerID)
	rng := utils.NewRandSource(seed)

	failures := 0
	for cycle := 0; ctx.Err() == nil; cycle++ {
		g.RemoveAllTowers()
		cycleSeed := rng.Int63()

		relax := NewRandomILPSolver(d.cfg, cycleSeed)
		if _, err := relax.Run(ctx, g); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("relaxation cycle failed", "cycle", cycle, "error", err)
			failures++
			if failures >= cycleFailureLimit {
				log.Warn("abandoning worker after consecutive cycle failures", "failures", failures)
				return
			}
			continue
		}

		climb := NewHillClimbSolver(d.cfg, cycleSeed, d.sink)
		result, err := climb.Run(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("hill climb cycle failed", "cycle", cycle, "error", err)
			failures++
			if failures >= cycleFailureLimit {
				log.Warn("abandoning worker after consecutive cycle failures", "failures", failures)
				return
			}
			continue
		}

		failures = 0
		d.collector.Inc(metrics.CounterRestarts)
		if result.Valid {
			d.offer(result, log, cycle)
		}
	}
}

// offer records a worker's result if it beats the driver's best so far
func (d *RestartDriver) offer(result *Result, log *slog.Logger, cycle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.haveBest && result.Penalty >= d.bestPenalty {
		return
	}
	d.bestTowers = result.Towers
	d.bestPenalty = result.Penalty
	d.haveBest = true
	d.collector.RecordBest(cycle, result.Penalty)
	log.Info("new best placement",
		"cycle", cycle,
		"penalty", result.Penalty,
		"towers", len(result.Towers))
}
