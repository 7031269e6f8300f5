package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (optional: an empty path
// keeps the defaults), merges it on top of Defaults(), applies OPTGREEKS_*
// environment overrides and returns the result. The returned Config has not
// been validated; call Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "OPTGREEKS_LOG_LEVEL")

	setFloat64(&cfg.Defaults.RiskFreeRate, "OPTGREEKS_RISK_FREE_RATE")
	setFloat64(&cfg.Defaults.DividendYield, "OPTGREEKS_DIVIDEND_YIELD")
	setStr(&cfg.Defaults.Kind, "OPTGREEKS_KIND")

	setFloat64(&cfg.Solver.InitialGuess, "OPTGREEKS_SOLVER_INITIAL_GUESS")
	setFloat64(&cfg.Solver.Tolerance, "OPTGREEKS_SOLVER_TOLERANCE")
	setInt(&cfg.Solver.MaxIterations, "OPTGREEKS_SOLVER_MAX_ITERATIONS")
	setFloat64(&cfg.Solver.VegaEpsilon, "OPTGREEKS_SOLVER_VEGA_EPSILON")
	setStr(&cfg.Solver.Policy, "OPTGREEKS_SOLVER_POLICY")
	setFloat64(&cfg.Solver.MinVolatility, "OPTGREEKS_SOLVER_MIN_VOLATILITY")

	setStr(&cfg.Batch.QuotesPath, "OPTGREEKS_QUOTES_PATH")
	setStr(&cfg.Batch.OutputDir, "OPTGREEKS_OUTPUT_DIR")
	setInt(&cfg.Batch.Workers, "OPTGREEKS_WORKERS")
	setInt64(&cfg.Batch.Synthetic.Seed, "OPTGREEKS_SYNTHETIC_SEED")

	setStr(&cfg.Server.Addr, "OPTGREEKS_SERVER_ADDR")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
