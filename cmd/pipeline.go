package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	collyfetcher "github.com/graviris/wildweb-scraper/internal/fetcher/colly"
	"github.com/graviris/wildweb-scraper/internal/fetcher/headless"
	"github.com/graviris/wildweb-scraper/internal/hash/sha256"
	"github.com/graviris/wildweb-scraper/internal/id/uuid"
	"github.com/graviris/wildweb-scraper/internal/progress"
	"github.com/graviris/wildweb-scraper/internal/progress/sinks"
	"github.com/graviris/wildweb-scraper/internal/scraper"
	"github.com/graviris/wildweb-scraper/internal/storage/local"
	"github.com/graviris/wildweb-scraper/internal/wildweb"

	clocksystem "github.com/graviris/wildweb-scraper/internal/clock/system"
)

// pipeline is everything a scraping command owns beyond the base app.
type pipeline struct {
	scraper   *scraper.Scraper
	harvester *headless.Harvester
	hub       *progress.Hub
	logger    *zap.Logger
}

// buildPipeline wires the fetchers, progress hub, and cycle runner. The
// Prometheus sink registers collectors against the default registry, so
// only one pipeline may exist per process.
func buildPipeline(a *app) (*pipeline, error) {
	cfg := a.cfg

	pages := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	})

	harvester, err := headless.NewChromedp(headless.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		GridSettle:        time.Duration(cfg.Headless.GridSettleSec) * time.Second,
		MaxScrollAttempts: cfg.Headless.MaxScrollAttempts,
		DefaultTargetRows: cfg.Headless.DefaultTargetRows,
		TargetGrowth:      cfg.Headless.TargetGrowth,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init grid harvester: %w", err)
	}

	var snaps wildweb.SnapshotStore
	if cfg.Snapshots.Enabled {
		snapStore, err := local.New(local.Config{BaseDir: cfg.Snapshots.Dir})
		if err != nil {
			harvester.Close()
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		snaps = snapStore
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		harvester.Close()
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: a.logger},
		sinks.NewLogSink(a.logger),
		promSink,
		sinks.NewStoreSink(a.store, a.logger),
	)

	sc, err := scraper.New(scraper.Options{
		Config: cfg,
		Store:  a.store,
		Pages:  pages,
		Grid:   harvester,
		Snaps:  snaps,
		Retry: wildweb.NewLinearRetryPolicy(
			cfg.Scraper.MaxRetries,
			time.Duration(cfg.Scraper.RetryBaseDelaySec)*time.Second,
		),
		IDGen:   uuid.NewGenerator(),
		Hasher:  sha256.New(),
		Clock:   clocksystem.New(),
		Emitter: hub,
		Logger:  a.logger,
	})
	if err != nil {
		harvester.Close()
		return nil, fmt.Errorf("init scraper: %w", err)
	}

	return &pipeline{
		scraper:   sc,
		harvester: harvester,
		hub:       hub,
		logger:    a.logger,
	}, nil
}

// close flushes the progress hub and tears down the browser allocator.
func (p *pipeline) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.hub.Close(ctx); err != nil {
		p.logger.Warn("progress hub close failed", zap.Error(err))
	}
	p.harvester.Close()
}
