// Package scheduler triggers scrape cycles on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/metrics"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// CycleRunner executes a single scrape cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (wildweb.CycleCounters, error)
}

// Scheduler launches one cycle per tick. Ticks that arrive while a cycle
// is still running are skipped so cycles never overlap.
type Scheduler struct {
	runner     CycleRunner
	interval   time.Duration
	runOnStart bool
	logger     *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// New builds a Scheduler around the given cycle runner.
func New(runner CycleRunner, interval time.Duration, runOnStart bool, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Run blocks until ctx is canceled, then waits for any in-flight cycle.
// The first cycle runs immediately when runOnStart is set; afterwards
// cycles follow the ticker.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_start", s.runOnStart),
	)

	if s.runOnStart {
		s.launch(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			s.launch(ctx)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(ctx)
	}()
}

// tick runs a cycle unless one is already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		metrics.ObserveTickSkipped()
		s.logger.Warn("skipping scrape tick, previous cycle still running")
		return
	}
	defer s.running.Store(false)

	if _, err := s.runner.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduled cycle failed", zap.Error(err))
	}
}
