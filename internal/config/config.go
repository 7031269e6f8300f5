// Package config defines the runtime configuration of option-greeks and its
// documented defaults.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/option-greeks/internal/logger"
	"github.com/contactkeval/option-greeks/internal/pricing"
)

// Config is the root configuration. Fields are populated from a TOML file on
// top of Defaults() and then optionally overridden by OPTGREEKS_* variables.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Solver   SolverConfig   `toml:"solver"`
	Batch    BatchConfig    `toml:"batch"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// DefaultsConfig supplies inputs that HTTP requests omit and that the
// synthetic quote generator uses.
type DefaultsConfig struct {
	RiskFreeRate  float64 `toml:"risk_free_rate"`
	DividendYield float64 `toml:"dividend_yield"` // q, 0 unless configured
	Kind          string  `toml:"kind"`           // "call" unless configured
}

// SolverConfig mirrors pricing.SolverOptions.
type SolverConfig struct {
	InitialGuess  float64 `toml:"initial_guess"`
	Tolerance     float64 `toml:"tolerance"`
	MaxIterations int     `toml:"max_iterations"`
	VegaEpsilon   float64 `toml:"vega_epsilon"`
	Policy        string  `toml:"policy"` // "fail" or "clamp"
	MinVolatility float64 `toml:"min_volatility"`
}

// BatchConfig drives the quote evaluation run.
type BatchConfig struct {
	QuotesPath string          `toml:"quotes_path"` // CSV of quotes; empty uses the synthetic provider
	OutputDir  string          `toml:"output_dir"`
	Workers    int             `toml:"workers"`
	Synthetic  SyntheticConfig `toml:"synthetic"`
}

// SyntheticConfig shapes the generated quote surface.
type SyntheticConfig struct {
	Underlying string    `toml:"underlying"`
	Spot       float64   `toml:"spot"`
	BaseVol    float64   `toml:"base_vol"`
	Skew       float64   `toml:"skew"`   // vol change per unit log-moneyness
	Noise      float64   `toml:"noise"`  // std dev of per-quote vol jitter, 0 for a smooth surface
	Deltas     []float64 `toml:"deltas"` // call deltas to place strikes at
	Expiries   []float64 `toml:"expiries"`
	Seed       int64     `toml:"seed"`
}

// ServerConfig configures the optional HTTP surface.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Defaults returns the configuration used when nothing is configured.
func Defaults() Config {
	return Config{
		Defaults: DefaultsConfig{
			RiskFreeRate:  0.05,
			DividendYield: 0,
			Kind:          "call",
		},
		Solver: SolverConfig{
			InitialGuess:  pricing.DefaultInitialGuess,
			Tolerance:     pricing.DefaultTolerance,
			MaxIterations: pricing.DefaultMaxIterations,
			VegaEpsilon:   pricing.DefaultVegaEpsilon,
			Policy:        pricing.PolicyFail.String(),
			MinVolatility: pricing.DefaultMinVolatility,
		},
		Batch: BatchConfig{
			OutputDir: "./out",
			Workers:   4,
			Synthetic: SyntheticConfig{
				Underlying: "SYN",
				Spot:       100,
				BaseVol:    0.2,
				Skew:       -0.1,
				Deltas:     []float64{0.1, 0.25, 0.5, 0.75, 0.9},
				Expiries:   []float64{30.0 / 365, 90.0 / 365, 180.0 / 365, 1},
				Seed:       1,
			},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	var errs []string

	if _, err := pricing.ParseKind(c.Defaults.Kind); err != nil {
		errs = append(errs, "defaults.kind: "+err.Error())
	}
	if _, err := c.Solver.Options(); err != nil {
		errs = append(errs, "solver: "+err.Error())
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, "batch.workers must be positive")
	}
	if c.Batch.OutputDir == "" {
		errs = append(errs, "batch.output_dir is required")
	}
	if c.Batch.QuotesPath == "" {
		s := c.Batch.Synthetic
		if s.Spot <= 0 || s.BaseVol <= 0 {
			errs = append(errs, "batch.synthetic spot and base_vol must be positive")
		}
		if s.Noise < 0 || math.IsNaN(s.Noise) {
			errs = append(errs, "batch.synthetic noise must be non-negative")
		}
		if len(s.Deltas) == 0 || len(s.Expiries) == 0 {
			errs = append(errs, "batch.synthetic needs deltas and expiries")
		}
		for _, d := range s.Deltas {
			if d <= 0 || d >= 1 {
				errs = append(errs, fmt.Sprintf("batch.synthetic delta %g outside (0,1)", d))
			}
		}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, "log_level: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Options converts the solver section into pricing.SolverOptions.
func (s SolverConfig) Options() (pricing.SolverOptions, error) {
	policy, err := pricing.ParseDomainPolicy(s.Policy)
	if err != nil {
		return pricing.SolverOptions{}, err
	}
	opts := pricing.SolverOptions{
		InitialGuess:  s.InitialGuess,
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
		VegaEpsilon:   s.VegaEpsilon,
		Policy:        policy,
		MinVolatility: s.MinVolatility,
	}
	return opts, opts.Validate()
}
