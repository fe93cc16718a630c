// Package config handles reactorctl configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./reactor.yaml, ~/.config/xo-reactor/reactor.yaml, /config/reactor.yaml,
// /etc/xo-reactor/reactor.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"reactor.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "xo-reactor", "reactor.yaml"))
	}

	paths = append(paths, "/config/reactor.yaml") // Container convention
	paths = append(paths, "/etc/xo-reactor/reactor.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all reactorctl configuration for a single simulation run.
type Config struct {
	Process  ProcessConfig  `yaml:"process"`
	Filter   FilterConfig   `yaml:"filter"`
	Run      RunConfig      `yaml:"run"`
	Recorder RecorderConfig `yaml:"recorder"`
	LogLevel string         `yaml:"log_level"`
}

// ProcessConfig describes the stochastic process driving the realization
// source (see internal/process.BrownianMotion).
type ProcessConfig struct {
	// Kind selects the process implementation. Only "brownian" is built in.
	Kind string `yaml:"kind"`
	// Volatility is the annualized volatility (sigma), e.g. 0.30 for 30%/yr.
	Volatility float64 `yaml:"volatility"`
	// X0 is the initial sample value at t0.
	X0 float64 `yaml:"x0"`
	// Seed seeds the deterministic PRNG driving the realization.
	Seed uint64 `yaml:"seed"`
	// SampleInterval is the fixed discretization interval between events.
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// FilterConfig parameterizes a scalar or small fixed-dimension Kalman
// filter for the bundled CLI scenarios (see internal/kalman).
type FilterConfig struct {
	// StateDim is the dimension n of the state vector.
	StateDim int `yaml:"state_dim"`
	// ObservationNoiseStdev is the per-observation error stdev (R's diagonal).
	ObservationNoiseStdev float64 `yaml:"observation_noise_stdev"`
	// ProcessNoiseVariance seeds Q's diagonal.
	ProcessNoiseVariance float64 `yaml:"process_noise_variance"`
	// UseScalarSequential selects scalar-by-scalar correction over batched.
	UseScalarSequential bool `yaml:"use_scalar_sequential"`
}

// RunConfig controls the simulator's run loop.
type RunConfig struct {
	// Duration is the simulated wall-clock span to run, from t0.
	Duration time.Duration `yaml:"duration"`
	// ReplayFactor throttles simulated time to real time when > 0.
	// 0 or negative means "as fast as possible".
	ReplayFactor float64 `yaml:"replay_factor"`
	// MaxEvents caps the number of dispatched events when > 0.
	MaxEvents int `yaml:"max_events"`
}

// RecorderConfig controls optional SQLite-backed run persistence.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${HOME}). This is a convenience
	// for container deployments; the recommended approach is to put
	// values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Process.Kind == "" {
		c.Process.Kind = "brownian"
	}
	if c.Process.SampleInterval == 0 {
		c.Process.SampleInterval = time.Second
	}
	if c.Filter.StateDim == 0 {
		c.Filter.StateDim = 1
	}
	if c.Run.Duration == 0 {
		c.Run.Duration = time.Minute
	}
	if c.Recorder.DBPath == "" {
		c.Recorder.DBPath = "./reactor.db"
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Process.Kind != "brownian" {
		return fmt.Errorf("process.kind %q not supported (only \"brownian\")", c.Process.Kind)
	}
	if c.Filter.StateDim < 1 {
		return fmt.Errorf("filter.state_dim %d must be >= 1", c.Filter.StateDim)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration for the bundled scalar-Kalman
// Brownian-motion demo. All defaults are already applied.
func Default() *Config {
	cfg := &Config{
		Process: ProcessConfig{
			Kind:       "brownian",
			Volatility: 0.30,
			Seed:       12345678,
		},
		Filter: FilterConfig{
			StateDim:              1,
			ObservationNoiseStdev: 1.0,
			ProcessNoiseVariance:  0.0,
		},
	}
	cfg.applyDefaults()
	return cfg
}
