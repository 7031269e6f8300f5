package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contactkeval/option-greeks/internal/config"
	"github.com/contactkeval/option-greeks/internal/data"
	"github.com/contactkeval/option-greeks/internal/engine"
	"github.com/contactkeval/option-greeks/internal/logger"
	"github.com/contactkeval/option-greeks/internal/metrics"
	"github.com/contactkeval/option-greeks/internal/pricing"
	"github.com/contactkeval/option-greeks/internal/report"
	"github.com/contactkeval/option-greeks/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config (defaults apply when empty)")
	rest := flag.Bool("rest", false, "run as REST server instead of a batch")
	port := flag.String("port", "", "REST server listen address, overrides [server] addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("loading config: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Errorf("metrics: %v", err)
		os.Exit(1)
	}

	if *rest {
		addr := cfg.Server.Addr
		if *port != "" {
			addr = *port
		}
		srv, err := server.New(*cfg, collector)
		if err != nil {
			logger.Errorf("server: %v", err)
			os.Exit(1)
		}
		if err := srv.Run(ctx, addr); err != nil {
			logger.Errorf("server stopped: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runBatch(ctx, *cfg, collector); err != nil {
		logger.Errorf("batch failed: %v", err)
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, cfg config.Config, observer engine.Observer) error {
	start := time.Now()

	solver, err := cfg.Solver.Options()
	if err != nil {
		return err
	}
	kind, err := pricing.ParseKind(cfg.Defaults.Kind)
	if err != nil {
		return err
	}

	// choose provider
	syn := cfg.Batch.Synthetic
	prov := data.NewSyntheticProvider(data.SyntheticSpec{
		Underlying: syn.Underlying,
		Spot:       syn.Spot,
		Rate:       cfg.Defaults.RiskFreeRate,
		Dividend:   cfg.Defaults.DividendYield,
		BaseVol:    syn.BaseVol,
		Skew:       syn.Skew,
		Noise:      syn.Noise,
		Deltas:     syn.Deltas,
		Expiries:   syn.Expiries,
		StrikeStep: 1,
		AsOf:       start,
		Seed:       syn.Seed,
	})
	if cfg.Batch.QuotesPath != "" {
		prov = data.NewLocalCSVProvider(cfg.Batch.QuotesPath, prov)
		logger.Infof("local quotes %s enabled, synthetic fallback", cfg.Batch.QuotesPath)
	} else {
		logger.Infof("synthetic provider enabled")
	}

	eng := engine.NewEngine(engine.Config{
		Solver:      solver,
		DefaultKind: kind,
		Workers:     cfg.Batch.Workers,
	}, prov).WithObserver(observer)

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Batch.OutputDir, 0755); err != nil {
		return err
	}
	if err := report.WriteJSON(res, cfg.Batch.OutputDir); err != nil {
		return err
	}
	if err := report.WriteCSV(res.Rows, cfg.Batch.OutputDir); err != nil {
		return err
	}
	for _, status := range res.Summary.Statuses() {
		logger.Debugf("status %s: %d", status, res.Summary.ByStatus[status])
	}
	logger.Infof("finished in %v, wrote %d rows to %s", time.Since(start), len(res.Rows), cfg.Batch.OutputDir)
	return nil
}
