//go:build integration
// +build integration

package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/placement-opt/placement-core/internal/cache"
	"github.com/placement-opt/placement-core/internal/leaderboard"
	"github.com/placement-opt/placement-core/internal/solve"
	"github.com/placement-opt/placement-core/internal/store"
	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
)

const tinyProblem = `# tiny integration instance
3
8
2
4
1 1
1 6
6 3
`

func writeTinyInstance(t *testing.T, dir string) (input, output string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "inputs", "tiny"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	input = filepath.Join(dir, "inputs", "tiny", "001.in")
	output = filepath.Join(dir, "outputs", "tiny", "001.out")
	if err := os.WriteFile(input, []byte(tinyProblem), 0o644); err != nil {
		t.Fatalf("write problem: %v", err)
	}
	return input, output
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.InputsDir = filepath.Join(dir, "inputs")
	cfg.OutputsDir = filepath.Join(dir, "outputs")
	cfg.Solver.TimeBudget = "2s"
	cfg.Solver.Workers = 2
	cfg.Solver.Seed = 17
	cfg.Annealing.MaxIterations = 300
	cfg.Cache.Path = ""
	return cfg
}

func TestIntegration_SolveAndPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input, output := writeTinyInstance(t, dir)
	cfg := testConfig(dir)

	paths, err := store.ResolveSpecs(cfg.InputsDir, cfg.OutputsDir, []string{"tiny/1"})
	if err != nil {
		t.Fatalf("ResolveSpecs: %v", err)
	}
	if len(paths) != 1 || paths[0].Input != input || paths[0].Output != output {
		t.Fatalf("unexpected paths: %+v", paths)
	}

	g, err := store.LoadGrid(paths[0].Input, nil)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if g.NumCities() != 3 || g.Dimension() != 8 {
		t.Fatalf("loaded grid mismatch: %d cities, dimension %d", g.NumCities(), g.Dimension())
	}

	writer := &store.SolutionWriter{Path: paths[0].Output}
	solver, err := solve.New("hillclimb", cfg, writer, nil)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	result, err := solver.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected a valid placement")
	}
	if _, err := writer.Persist(g); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := store.ReadPenalty(paths[0].Output)
	if err != nil {
		t.Fatalf("ReadPenalty: %v", err)
	}
	if stored != result.Penalty {
		t.Fatalf("stored penalty %f != result penalty %f", stored, result.Penalty)
	}

	// A second, worse run must not overwrite the stored solution.
	g2, err := store.LoadGrid(paths[0].Input, nil)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	baseline, err := solve.New("cities", cfg, solve.DiscardSink{}, nil)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if _, err := baseline.Run(context.Background(), g2); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	wrote, err := writer.Persist(g2)
	if err != nil {
		t.Fatalf("Persist baseline: %v", err)
	}
	if wrote && g2.Penalty() >= stored {
		t.Fatalf("worse placement overwrote the stored solution")
	}
}

func TestIntegration_RestartDriverOnDisk(t *testing.T) {
	dir := t.TempDir()
	_, output := writeTinyInstance(t, dir)
	cfg := testConfig(dir)
	cfg.Solver.TimeBudget = "1500ms"

	g, err := store.LoadGrid(filepath.Join(cfg.InputsDir, "tiny", "001.in"), nil)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	writer := &store.SolutionWriter{Path: output}
	driver, err := solve.New("restart", cfg, writer, nil)
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	result, err := driver.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected a valid placement")
	}

	stored, err := store.ReadPenalty(output)
	if err != nil {
		t.Fatalf("ReadPenalty: %v", err)
	}
	if stored <= 0 {
		t.Fatalf("stored penalty %f not positive", stored)
	}
}

func TestIntegration_CacheSeededSolveMatchesUnseeded(t *testing.T) {
	dir := t.TempDir()
	writeTinyInstance(t, dir)
	cfg := testConfig(dir)
	cfg.Cache.Path = filepath.Join(dir, "coverage.db")
	cfg.Cache.Classes = []config.SizeClass{
		{Name: "tiny", Dimension: 8, ServiceRadius: 2, PenaltyRadius: 4},
	}

	s, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer s.Close()
	if err := s.Generate(cfg.Cache.Classes); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	seeded := geometry.NewIndex()
	if err := s.SeedIndex(seeded, cfg.Cache.Classes); err != nil {
		t.Fatalf("SeedIndex: %v", err)
	}

	input := filepath.Join(cfg.InputsDir, "tiny", "001.in")
	gSeeded, err := store.LoadGrid(input, seeded)
	if err != nil {
		t.Fatalf("LoadGrid seeded: %v", err)
	}
	gPlain, err := store.LoadGrid(input, nil)
	if err != nil {
		t.Fatalf("LoadGrid plain: %v", err)
	}

	s1, err := solve.New("greedy", cfg, nil, nil)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	r1, err := s1.Run(context.Background(), gSeeded)
	if err != nil {
		t.Fatalf("seeded run: %v", err)
	}
	s2, err := solve.New("greedy", cfg, nil, nil)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	r2, err := s2.Run(context.Background(), gPlain)
	if err != nil {
		t.Fatalf("plain run: %v", err)
	}

	if r1.Penalty != r2.Penalty || len(r1.Towers) != len(r2.Towers) {
		t.Fatalf("seeded index changed the greedy result: %f/%d vs %f/%d",
			r1.Penalty, len(r1.Towers), r2.Penalty, len(r2.Towers))
	}
}

func TestIntegration_LeaderboardComparison(t *testing.T) {
	dir := t.TempDir()
	_, output := writeTinyInstance(t, dir)
	cfg := testConfig(dir)

	g, err := store.LoadGrid(filepath.Join(cfg.InputsDir, "tiny", "001.in"), nil)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	solver, err := solve.New("greedy", cfg, &store.SolutionWriter{Path: output}, nil)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	result, err := solver.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	remoteBest := result.Penalty + 100.0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"Entries":[{"TeamName":"rival","TeamScore":%f}]}`, remoteBest)
	}))
	defer srv.Close()

	local, err := store.ReadPenalty(output)
	if err != nil {
		t.Fatalf("ReadPenalty: %v", err)
	}
	cmp, err := leaderboard.NewClient(srv.URL, srv.Client()).Compare(context.Background(), "tiny", 1, local)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !cmp.Better {
		t.Fatalf("local %f should beat remote %f", cmp.Local, cmp.Best)
	}
}
