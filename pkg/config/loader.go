package config

import (
	"fmt"
	"os"
	"time"
)

// Load loads and parses a configuration file. An empty path returns the
// built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Solver.Workers <= 0 {
		return fmt.Errorf("solver workers must be positive, got %d", cfg.Solver.Workers)
	}
	if _, err := time.ParseDuration(cfg.Solver.TimeBudget); err != nil {
		return fmt.Errorf("invalid solver time_budget %s: %w", cfg.Solver.TimeBudget, err)
	}

	if cfg.Greedy.Tolerance < 0 || cfg.Greedy.Tolerance > 1 {
		return fmt.Errorf("greedy tolerance must be between 0 and 1, got %f", cfg.Greedy.Tolerance)
	}

	if cfg.HillClimb.SearchRadius <= 0 {
		return fmt.Errorf("hillclimb search_radius must be positive, got %d", cfg.HillClimb.SearchRadius)
	}

	if cfg.Annealing.InitialTemp <= 0 {
		return fmt.Errorf("annealing initial_temp must be positive, got %f", cfg.Annealing.InitialTemp)
	}
	if cfg.Annealing.MaxIterations <= 0 {
		return fmt.Errorf("annealing max_iterations must be positive, got %d", cfg.Annealing.MaxIterations)
	}
	if cfg.Annealing.Neighbor != "relocate" && cfg.Annealing.Neighbor != "fracture" {
		return fmt.Errorf("invalid annealing neighbor policy: %s (must be relocate or fracture)", cfg.Annealing.Neighbor)
	}

	if _, err := time.ParseDuration(cfg.ILP.TimeLimit); err != nil {
		return fmt.Errorf("invalid ilp time_limit %s: %w", cfg.ILP.TimeLimit, err)
	}
	if cfg.ILP.Perturbation < 0 || cfg.ILP.Perturbation >= 1 {
		return fmt.Errorf("ilp perturbation must be in [0, 1), got %f", cfg.ILP.Perturbation)
	}
	if cfg.ILP.MaxRows <= 0 {
		return fmt.Errorf("ilp max_rows must be positive, got %d", cfg.ILP.MaxRows)
	}

	classNames := make(map[string]bool)
	for _, sc := range cfg.Cache.Classes {
		if sc.Name == "" {
			return fmt.Errorf("cache size class name cannot be empty")
		}
		if classNames[sc.Name] {
			return fmt.Errorf("duplicate cache size class: %s", sc.Name)
		}
		classNames[sc.Name] = true
		if sc.Dimension <= 0 {
			return fmt.Errorf("size class %s: dimension must be positive", sc.Name)
		}
		if sc.ServiceRadius < 0 || sc.PenaltyRadius < 0 {
			return fmt.Errorf("size class %s: radii cannot be negative", sc.Name)
		}
	}

	return nil
}
