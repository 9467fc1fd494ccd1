package main

import (
	"context"
	"fmt"

	"MarketLedger/internal/cache"
	"MarketLedger/internal/collector"
	"MarketLedger/internal/config"
	"MarketLedger/internal/fundamentals"
	"MarketLedger/internal/indicator"
	"MarketLedger/internal/metrics"
	"MarketLedger/internal/pipeline"
	"MarketLedger/internal/store"

	"go.uber.org/zap"
)

func buildFetcher(cfg *config.Config, log *zap.SugaredLogger) (collector.Fetcher, error) {
	ds := cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "yahoo":
		f = collector.NewYahooFetcher(cfg.Proxy, ds.Timeout)
	case "rest":
		f = collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout)
	case "mock":
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
	policy := collector.DefaultRetryPolicy()
	policy.MaxRetries = ds.Retries
	return collector.NewResilient(f, policy, log), nil
}

func indicatorConfig(c config.IndicatorConfig) indicator.Config {
	return indicator.Config{
		YearWindow:     c.YearWindow,
		MomentumWindow: c.MomentumWindow,
		Weights: indicator.Weights{
			Short:    c.Weights.Short,
			Medium:   c.Weights.Medium,
			Long:     c.Weights.Long,
			Momentum: c.Weights.Momentum,
		},
	}
}

func buildFundamentals(path string, log *zap.SugaredLogger) (fundamentals.Source, error) {
	if path == "" {
		return fundamentals.None{}, nil
	}
	f, err := fundamentals.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Infow("Fundamentals loaded", "file", path, "symbols", f.Symbols())
	return f, nil
}

// processor owns the gateway and optional cache; release closes both.
type processor struct {
	*pipeline.Processor
	release func()
}

func buildProcessor(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, m *metrics.Metrics) (*processor, error) {
	fetcher, err := buildFetcher(cfg, log)
	if err != nil {
		return nil, err
	}
	engine, err := indicator.NewEngine(indicatorConfig(cfg.Indicators))
	if err != nil {
		return nil, fmt.Errorf("indicator config: %w", err)
	}
	funds, err := buildFundamentals(cfg.Pipeline.FundamentalsFile, log)
	if err != nil {
		return nil, err
	}
	gw, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := gw.Setup(ctx); err != nil {
		gw.Close()
		return nil, err
	}

	p := &pipeline.Processor{
		Fetcher:      fetcher,
		Engine:       engine,
		Store:        gw,
		Fundamentals: funds,
		Log:          log,
		Metrics:      m,
	}
	release := func() {
		if err := gw.Close(); err != nil {
			log.Warnw("Close store failed", "error", err)
		}
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Warnw("Redis unavailable, cached rows will expire by TTL only", "error", err)
		} else {
			p.Cache = rc
			closeStore := release
			release = func() {
				rc.Close()
				closeStore()
			}
		}
	}
	return &processor{Processor: p, release: release}, nil
}
