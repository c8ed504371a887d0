package config

import "time"

// Config is the root runtime configuration
type Config struct {
	LogLevel   string `yaml:"log_level"`
	InputsDir  string `yaml:"inputs_dir"`
	OutputsDir string `yaml:"outputs_dir"`

	Solver      SolverConfig      `yaml:"solver"`
	Greedy      GreedyConfig      `yaml:"greedy"`
	HillClimb   HillClimbConfig   `yaml:"hillclimb"`
	Annealing   AnnealingConfig   `yaml:"annealing"`
	ILP         ILPConfig         `yaml:"ilp"`
	Cache       CacheConfig       `yaml:"cache"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
}

// SolverConfig holds settings shared by every solver strategy
type SolverConfig struct {
	// Default is the solver used when none is named on the command line
	Default string `yaml:"default"`
	// TimeBudget bounds a single solver run, e.g. "60s"
	TimeBudget string `yaml:"time_budget"`
	// Workers is the number of concurrent search instances in the restart driver
	Workers int `yaml:"workers"`
	// Seed seeds the pseudo-random sources; zero picks a time-based seed
	Seed int64 `yaml:"seed"`
}

// GreedyConfig tunes the greedy constructor
type GreedyConfig struct {
	// Tolerance is the fraction of next-best coverage candidates also
	// considered when picking the lowest-penalty placement
	Tolerance float64 `yaml:"tolerance"`
}

// HillClimbConfig tunes the hill-climbing local search
type HillClimbConfig struct {
	// SearchRadius bounds candidate cells when relocating a tower
	SearchRadius int `yaml:"search_radius"`
}

// AnnealingConfig tunes the simulated annealing solver
type AnnealingConfig struct {
	InitialTemp   float64 `yaml:"initial_temp"`
	MaxIterations int     `yaml:"max_iterations"`
	// ReannealFixed resets the temperature every N iterations
	ReannealFixed int `yaml:"reanneal_fixed"`
	// ReannealAccepted resets after N iterations without an accepted move
	ReannealAccepted int `yaml:"reanneal_accepted"`
	// ReannealBest resets after N iterations without a new best solution
	ReannealBest int `yaml:"reanneal_best"`
	// RelocateRadius bounds the relocation distance of the neighbor function
	RelocateRadius int `yaml:"relocate_radius"`
	// Neighbor selects the neighbor-generation policy: "relocate" or "fracture"
	Neighbor string `yaml:"neighbor"`
}

// ILPConfig tunes the integer-program layer
type ILPConfig struct {
	// TimeLimit bounds a single branch-and-bound solve, e.g. "30s"
	TimeLimit string `yaml:"time_limit"`
	// Perturbation scales the randomized objective jitter of the relaxed variant
	Perturbation float64 `yaml:"perturbation"`
	// MaxRows caps the constraint-matrix size accepted by the exact encoding
	MaxRows int `yaml:"max_rows"`
}

// SizeClass names a (dimension, radius) pair the coverage cache is built for
type SizeClass struct {
	Name          string `yaml:"name"`
	Dimension     int    `yaml:"dimension"`
	ServiceRadius int    `yaml:"service_radius"`
	PenaltyRadius int    `yaml:"penalty_radius"`
}

// CacheConfig configures the persisted coverage cache
type CacheConfig struct {
	// Path is the sqlite database file; empty disables the persisted cache
	Path    string      `yaml:"path"`
	Classes []SizeClass `yaml:"classes"`
}

// LeaderboardConfig configures the remote scoreboard client
type LeaderboardConfig struct {
	BaseURL string `yaml:"base_url"`
	// Counts maps a size class name to the number of instances it contains
	Counts map[string]int `yaml:"counts"`
}

// DefaultConfig returns the built-in configuration: the standard size
// classes and the solver tuning the system ships with.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		InputsDir:  "inputs",
		OutputsDir: "outputs",
		Solver: SolverConfig{
			Default:    "restart",
			TimeBudget: "60s",
			Workers:    4,
		},
		Greedy: GreedyConfig{
			Tolerance: 0.1,
		},
		HillClimb: HillClimbConfig{
			SearchRadius: 3,
		},
		Annealing: AnnealingConfig{
			InitialTemp:      15.0,
			MaxIterations:    1000,
			ReannealFixed:    1000,
			ReannealAccepted: 500,
			ReannealBest:     800,
			RelocateRadius:   3,
			Neighbor:         "relocate",
		},
		ILP: ILPConfig{
			TimeLimit:    "30s",
			Perturbation: 0.25,
			MaxRows:      4000,
		},
		Cache: CacheConfig{
			Path: "coverage.db",
			Classes: []SizeClass{
				{Name: "small", Dimension: 30, ServiceRadius: 3, PenaltyRadius: 8},
				{Name: "medium", Dimension: 50, ServiceRadius: 3, PenaltyRadius: 10},
				{Name: "large", Dimension: 100, ServiceRadius: 3, PenaltyRadius: 14},
			},
		},
		Leaderboard: LeaderboardConfig{
			BaseURL: "https://project.cs170.dev/scoreboard",
			Counts:  map[string]int{"small": 241, "medium": 239, "large": 239},
		},
	}
}

// GetTimeBudget returns the parsed solver time budget. The string is
// checked at load time; an unparseable value falls back to one minute.
func (c *Config) GetTimeBudget() time.Duration {
	d, err := time.ParseDuration(c.Solver.TimeBudget)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetILPTimeLimit returns the parsed ILP solve time limit, falling back to
// thirty seconds if the string does not parse
func (c *Config) GetILPTimeLimit() time.Duration {
	d, err := time.ParseDuration(c.ILP.TimeLimit)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Class returns the size class with the given name, if configured
func (c *Config) Class(name string) (SizeClass, bool) {
	for _, sc := range c.Cache.Classes {
		if sc.Name == name {
			return sc, true
		}
	}
	return SizeClass{}, false
}
