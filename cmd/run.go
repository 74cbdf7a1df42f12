package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/api"
	"github.com/graviris/wildweb-scraper/internal/scheduler"
)

// newRunCmd creates the 'run' subcommand, the long-lived service mode and
// the container entrypoint.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the scheduler loop and observability server",
		Long: `Runs scrape cycles on the configured interval until interrupted.
The first cycle starts immediately; ticks that arrive while a cycle is
still running are skipped. When enabled, an HTTP server exposes health,
status, and Prometheus metrics endpoints.`,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	p, err := buildPipeline(a)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := cmd.Context()

	var srv *http.Server
	if a.cfg.Server.Enabled {
		server := api.NewServer(a.store, a.logger)
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.logger.Info("http server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	sched := scheduler.New(p.scraper, a.cfg.Interval(), a.cfg.Scheduler.RunOnStart, a.logger)
	err = sched.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			a.logger.Warn("http server shutdown failed", zap.Error(serr))
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}
