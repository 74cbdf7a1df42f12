// Package cmd defines and implements the CLI commands for the scraper
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/config"
	"github.com/graviris/wildweb-scraper/internal/logging"
	"github.com/graviris/wildweb-scraper/internal/storage/sqlite"
)

var cfgFile string

// appKeyType is the key for storing the app in the context.
type appKeyType string

const appKey appKeyType = "app"

// app bundles the services every subcommand needs. Commands that drive
// the scrape pipeline build the rest on top of it.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *sqlite.Store
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newApp is a variable so tests can replace it with a fake factory.
var newApp = func(_ context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Dir)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logStartup(logger, cfg)

	store, err := sqlite.New(context.Background(), sqlite.Config{
		Path:        cfg.DB.Path,
		BusyTimeout: time.Duration(cfg.DB.BusyTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

// logStartup records the effective timezone and schedule so deployments
// can confirm the TZ and SCRAPE_INTERVAL environment took effect.
func logStartup(logger *zap.Logger, cfg config.Config) {
	logger.Info("starting up",
		zap.String("timezone", time.Now().Location().String()),
		zap.String("tz_env", os.Getenv("TZ")),
		zap.Int("scrape_interval_sec", cfg.Scheduler.IntervalSeconds),
	)
}

// NewRootCmd creates and configures the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wildweb-scraper",
		Short: "Scrapes WildWeb wildfire dispatch data into SQLite.",
		Long: `wildweb-scraper harvests the national WildWeb dispatch center index
and every center's incident grid, persisting centers and incident
occurrence history into a local SQLite database on a fixed schedule.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				a.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, env vars work without one)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newCentersCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}
