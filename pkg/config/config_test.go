package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Solver.Default != "restart" {
		t.Errorf("expected default solver restart, got %s", cfg.Solver.Default)
	}
	if got := cfg.GetTimeBudget(); got != 60*time.Second {
		t.Errorf("expected 60s budget, got %s", got)
	}
	if got := cfg.GetILPTimeLimit(); got != 30*time.Second {
		t.Errorf("expected 30s ILP limit, got %s", got)
	}
}

func TestDefaultSizeClasses(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name          string
		dimension     int
		penaltyRadius int
	}{
		{"small", 30, 8},
		{"medium", 50, 10},
		{"large", 100, 14},
	}
	for _, tt := range tests {
		sc, ok := cfg.Class(tt.name)
		if !ok {
			t.Fatalf("missing size class %s", tt.name)
		}
		if sc.Dimension != tt.dimension {
			t.Errorf("%s dimension = %d, want %d", tt.name, sc.Dimension, tt.dimension)
		}
		if sc.ServiceRadius != 3 {
			t.Errorf("%s service radius = %d, want 3", tt.name, sc.ServiceRadius)
		}
		if sc.PenaltyRadius != tt.penaltyRadius {
			t.Errorf("%s penalty radius = %d, want %d", tt.name, sc.PenaltyRadius, tt.penaltyRadius)
		}
	}

	if _, ok := cfg.Class("huge"); ok {
		t.Errorf("unknown class should not resolve")
	}
}

func TestParseYAMLOverridesDefaults(t *testing.T) {
	cfg, err := ParseYAMLString(`
log_level: debug
solver:
  default: anneal
  time_budget: 90s
  workers: 8
annealing:
  neighbor: fracture
`)
	if err != nil {
		t.Fatalf("ParseYAMLString: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %s", cfg.LogLevel)
	}
	if cfg.Solver.Default != "anneal" || cfg.Solver.Workers != 8 {
		t.Errorf("solver overrides not applied: %+v", cfg.Solver)
	}
	if cfg.Annealing.Neighbor != "fracture" {
		t.Errorf("neighbor = %s", cfg.Annealing.Neighbor)
	}
	// Untouched sections keep their defaults.
	if cfg.Greedy.Tolerance != 0.1 {
		t.Errorf("greedy tolerance = %f, want default 0.1", cfg.Greedy.Tolerance)
	}
	if len(cfg.Cache.Classes) != 3 {
		t.Errorf("expected default size classes, got %d", len(cfg.Cache.Classes))
	}
}

func TestParseYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad log level":    "log_level: loud",
		"zero workers":     "solver:\n  workers: 0",
		"bad budget":       "solver:\n  time_budget: fast",
		"tolerance range":  "greedy:\n  tolerance: 1.5",
		"bad neighbor":     "annealing:\n  neighbor: teleport",
		"bad perturbation": "ilp:\n  perturbation: 1.0",
		"bad yaml":         "solver: [",
	}
	for name, yaml := range cases {
		if _, err := ParseYAMLString(yaml); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %s", cfg.LogLevel)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load with empty path: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("empty path should return defaults, got log level %s", cfg.LogLevel)
	}
}

func TestDuplicateSizeClassRejected(t *testing.T) {
	_, err := ParseYAMLString(`
cache:
  classes:
    - name: small
      dimension: 30
      service_radius: 3
      penalty_radius: 8
    - name: small
      dimension: 50
      service_radius: 3
      penalty_radius: 10
`)
	if err == nil {
		t.Fatalf("expected duplicate class error")
	}
}
