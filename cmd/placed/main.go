// Command placed solves tower-placement instances from the command line.
//
// Usage:
//
//	placed [flags] list
//	placed [flags] solve <size>/<id> [<size>/<start>..<end> ...]
//	placed [flags] api <size>/<id> [...]
//	placed [flags] cache generate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placement-opt/placement-core/internal/cache"
	"github.com/placement-opt/placement-core/internal/leaderboard"
	"github.com/placement-opt/placement-core/internal/metrics"
	"github.com/placement-opt/placement-core/internal/solve"
	"github.com/placement-opt/placement-core/internal/store"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: placed [flags] <command> [args]

commands:
  list                     list available solver strategies
  solve <spec> [...]       solve instances, e.g. small/7 or medium/1..20
  api <spec> [...]         compare local solutions against the leaderboard
  cache generate           regenerate the persisted coverage cache

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var configPath string
	var logLevel string
	var budget string
	var workers int
	var seed int64
	var solverName string

	flag.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flag.StringVar(&budget, "budget", "", "solver time budget override, e.g. 90s")
	flag.IntVar(&workers, "workers", 0, "restart worker count override")
	flag.Int64Var(&seed, "seed", 0, "random seed override (0 keeps the configured seed)")
	flag.StringVar(&solverName, "solver", "", "solver strategy (default from config; see list)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "placed: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if budget != "" {
		if _, err := time.ParseDuration(budget); err != nil {
			fmt.Fprintf(os.Stderr, "placed: invalid -budget %q: %v\n", budget, err)
			os.Exit(2)
		}
		cfg.Solver.TimeBudget = budget
	}
	if workers > 0 {
		cfg.Solver.Workers = workers
	}
	if seed != 0 {
		cfg.Solver.Seed = seed
	}
	if solverName == "" {
		solverName = cfg.Solver.Default
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "list":
		err = runList()
	case "solve":
		err = runSolve(ctx, cfg, solverName, args[1:])
	case "api":
		err = runAPI(ctx, cfg, args[1:])
	case "cache":
		err = runCache(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "placed: unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		stop()
		os.Exit(1)
	}
}

func runList() error {
	for _, name := range solve.Names() {
		fmt.Println(name)
	}
	return nil
}

// runSolve resolves the instance specifiers and runs the named solver on
// each, persisting any improvement over the stored solution
func runSolve(ctx context.Context, cfg *config.Config, solverName string, specs []string) error {
	if len(specs) == 0 {
		return fmt.Errorf("solve: no instance specifiers given")
	}
	paths, err := store.ResolveSpecs(cfg.InputsDir, cfg.OutputsDir, specs)
	if err != nil {
		return err
	}

	index := loadIndex(cfg)
	for _, ip := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, err := store.LoadGrid(ip.Input, index)
		if err != nil {
			return err
		}

		collector := metrics.NewCollector()
		writer := &store.SolutionWriter{Path: ip.Output}
		solver, err := solve.New(solverName, cfg, writer, collector)
		if err != nil {
			return err
		}

		logger.Info("solving instance",
			"instance", fmt.Sprintf("%s/%03d", ip.Size, ip.ID),
			"solver", solverName,
			"cities", g.NumCities(),
			"dimension", g.Dimension())

		result, err := solver.Run(ctx, g)
		if err != nil {
			return fmt.Errorf("solve %s/%03d: %w", ip.Size, ip.ID, err)
		}
		wrote, err := writer.Persist(g)
		if err != nil {
			return err
		}
		logger.Info("solved instance",
			"instance", fmt.Sprintf("%s/%03d", ip.Size, ip.ID),
			"penalty", result.Penalty,
			"towers", len(result.Towers),
			"iterations", result.Iterations,
			"elapsed", result.Elapsed.String(),
			"improved", wrote)
	}
	return nil
}

// runAPI fetches the leaderboard's best score for each instance and
// reports how the local solution compares
func runAPI(ctx context.Context, cfg *config.Config, specs []string) error {
	if len(specs) == 0 {
		return fmt.Errorf("api: no instance specifiers given")
	}
	paths, err := store.ResolveSpecs(cfg.InputsDir, cfg.OutputsDir, specs)
	if err != nil {
		return err
	}

	client := leaderboard.NewClient(cfg.Leaderboard.BaseURL, nil)
	for _, ip := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		local, err := store.ReadPenalty(ip.Output)
		if err != nil {
			fmt.Printf("%s/%03d  no local solution (%v)\n", ip.Size, ip.ID, err)
			continue
		}
		cmp, err := client.Compare(ctx, ip.Size, ip.ID, local)
		if err != nil {
			return err
		}
		verdict := "worse"
		if cmp.Better {
			verdict = "better"
		} else if cmp.Tied {
			verdict = "tied"
		}
		fmt.Printf("%s/%03d  local=%v  best=%v  %s\n", ip.Size, ip.ID, cmp.Local, cmp.Best, verdict)
	}
	return nil
}

// runCache regenerates the persisted coverage cache for the configured
// size classes
func runCache(cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] != "generate" {
		return fmt.Errorf("cache: expected subcommand \"generate\"")
	}
	if cfg.Cache.Path == "" {
		return fmt.Errorf("cache: no cache path configured")
	}
	s, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Generate(cfg.Cache.Classes)
}

// loadIndex builds the coverage index, seeded from the persisted cache
// when one exists
func loadIndex(cfg *config.Config) *geometry.Index {
	index := geometry.NewIndex()
	if cfg.Cache.Path == "" {
		return index
	}
	if _, err := os.Stat(cfg.Cache.Path); err != nil {
		return index
	}
	s, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logger.Warn("failed to open coverage cache", "path", cfg.Cache.Path, "error", err)
		return index
	}
	defer s.Close()
	if err := s.SeedIndex(index, cfg.Cache.Classes); err != nil {
		logger.Warn("failed to seed coverage index", "path", cfg.Cache.Path, "error", err)
		return index
	}
	logger.Info("seeded coverage index", "path", cfg.Cache.Path, "entries", index.Size())
	return index
}
