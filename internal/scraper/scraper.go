// Package scraper runs the scrape cycle: centers index, per-center grid
// harvests, and persistence.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/graviris/wildweb-scraper/internal/config"
	"github.com/graviris/wildweb-scraper/internal/metrics"
	"github.com/graviris/wildweb-scraper/internal/progress"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// Scraper executes scrape cycles against the WildWeb site.
type Scraper struct {
	cfg     config.Config
	store   wildweb.Store
	pages   wildweb.PageFetcher
	grid    wildweb.GridHarvester
	snaps   wildweb.SnapshotStore
	retry   wildweb.RetryPolicy
	idGen   wildweb.IDGenerator
	hasher  wildweb.Hasher
	clock   wildweb.Clock
	emitter progress.Emitter
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Options bundles the scraper's collaborators. Snaps and Emitter are
// optional; everything else is required.
type Options struct {
	Config  config.Config
	Store   wildweb.Store
	Pages   wildweb.PageFetcher
	Grid    wildweb.GridHarvester
	Snaps   wildweb.SnapshotStore
	Retry   wildweb.RetryPolicy
	IDGen   wildweb.IDGenerator
	Hasher  wildweb.Hasher
	Clock   wildweb.Clock
	Emitter progress.Emitter
	Logger  *zap.Logger
}

// New validates the options and builds a Scraper. Center pacing comes from
// the configured per-center delay (one harvest per delay, burst of one).
func New(opts Options) (*Scraper, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Pages == nil {
		return nil, errors.New("page fetcher is required")
	}
	if opts.Grid == nil {
		return nil, errors.New("grid harvester is required")
	}
	if opts.Retry == nil {
		return nil, errors.New("retry policy is required")
	}
	if opts.IDGen == nil {
		return nil, errors.New("id generator is required")
	}
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if delay := opts.Config.CenterDelay(); delay > 0 {
		limit = rate.Every(delay)
	}
	return &Scraper{
		cfg:     opts.Config,
		store:   opts.Store,
		pages:   opts.Pages,
		grid:    opts.Grid,
		snaps:   opts.Snaps,
		retry:   opts.Retry,
		idGen:   opts.IDGen,
		hasher:  opts.Hasher,
		clock:   opts.Clock,
		emitter: opts.Emitter,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// RunCycle executes one full scrape cycle and returns its counters. A
// center that fails all retries is counted and skipped; the cycle itself
// fails only when ctx is canceled, the centers page cannot be processed,
// or no center succeeds.
func (s *Scraper) RunCycle(ctx context.Context) (wildweb.CycleCounters, error) {
	started := s.clock.Now()
	cycleUUID := uuid.New()
	cycleID := progress.UUIDToBytes(cycleUUID)
	logger := s.logger.With(zap.String("cycle_id", cycleUUID.String()))

	s.emit(progress.Event{
		CycleID: cycleID,
		TS:      started,
		Stage:   progress.StageCycleStart,
	})

	var counters wildweb.CycleCounters
	centers, err := s.refreshCenters(ctx)
	if err != nil {
		return counters, s.finishCycle(ctx, logger, cycleID, started, counters, err)
	}
	counters.CentersFound = len(centers)
	logger.Info("dispatch centers refreshed", zap.Int("centers", len(centers)))

	for _, center := range centers {
		if err := s.limiter.Wait(ctx); err != nil {
			return counters, s.finishCycle(ctx, logger, cycleID, started, counters, fmt.Errorf("pacing wait: %w", err))
		}

		centerStart := s.clock.Now()
		s.emit(progress.Event{
			CycleID: cycleID,
			TS:      centerStart,
			Stage:   progress.StageCenterStart,
			Center:  center.Code,
			State:   center.State,
		})

		rows, saved, err := s.harvestCenter(ctx, cycleUUID.String(), center, &counters)
		elapsed := s.clock.Now().Sub(centerStart)
		if err != nil {
			counters.CentersFailed++
			counters.IncidentsSaved += saved
			s.emit(progress.Event{
				CycleID:   cycleID,
				TS:        s.clock.Now(),
				Stage:     progress.StageCenterError,
				Center:    center.Code,
				State:     center.State,
				Rows:      int64(rows),
				Incidents: int64(saved),
				Dur:       elapsed,
				Note:      err.Error(),
			})
			logger.Warn("center harvest failed",
				zap.String("center", center.Code),
				zap.Int("incidents", saved),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return counters, s.finishCycle(ctx, logger, cycleID, started, counters, ctx.Err())
			}
			continue
		}

		counters.CentersScraped++
		counters.IncidentsSaved += saved
		s.emit(progress.Event{
			CycleID:   cycleID,
			TS:        s.clock.Now(),
			Stage:     progress.StageCenterDone,
			Center:    center.Code,
			State:     center.State,
			Rows:      int64(rows),
			Incidents: int64(saved),
			Dur:       elapsed,
		})
		logger.Info("center harvested",
			zap.String("center", center.Code),
			zap.Int("rows", rows),
			zap.Int("incidents", saved),
			zap.Duration("dur", elapsed),
		)
	}

	s.logStateSummary(ctx, logger)

	if counters.CentersFound > 0 && counters.CentersScraped == 0 {
		err = errors.New("no dispatch center could be harvested")
	}
	return counters, s.finishCycle(ctx, logger, cycleID, started, counters, err)
}

// refreshCenters fetches the index page, parses it, and persists the
// centers before reading them back so IDs come from the store's view.
func (s *Scraper) refreshCenters(ctx context.Context) ([]wildweb.DispatchCenter, error) {
	resp, err := s.pages.Fetch(ctx, s.cfg.Scraper.CentersURL)
	if err != nil {
		return nil, fmt.Errorf("fetch centers page: %w", err)
	}
	metrics.ObservePage("centers", resp.StatusCode)
	if resp.StatusCode != 0 && resp.StatusCode != 200 {
		return nil, fmt.Errorf("centers page returned status %d", resp.StatusCode)
	}

	centers, err := wildweb.ParseCenters(resp.Body, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(centers) == 0 {
		return nil, errors.New("centers page contained no dispatch centers")
	}
	if err := s.store.UpsertCenters(ctx, centers); err != nil {
		return nil, err
	}
	stored, err := s.store.ListCenters(ctx)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// harvestCenter drives the grid harvest with retries, then persists the
// incidents and optionally snapshots the rendered page. Returns the number
// of grid rows processed and incidents written. When every retry ends
// under target, whatever the last attempt collected is still persisted and
// the harvest error is returned alongside the counts.
func (s *Scraper) harvestCenter(
	ctx context.Context,
	cycleID string,
	center wildweb.DispatchCenter,
	counters *wildweb.CycleCounters,
) (int, int, error) {
	gridURL := s.centerGridURL(center.Code)

	var result wildweb.GridResult
	var harvestErr error
	for attempt := 1; ; attempt++ {
		result, harvestErr = s.grid.Harvest(ctx, gridURL)
		if harvestErr == nil {
			harvestErr = checkCompleteness(result)
		}
		if harvestErr == nil {
			break
		}
		if !s.retry.ShouldRetry(harvestErr, attempt) {
			break
		}
		counters.Retries++
		metrics.ObserveRetry(center.Code)
		s.logger.Debug("retrying center harvest",
			zap.String("center", center.Code),
			zap.Int("attempt", attempt),
			zap.Error(harvestErr),
		)
		if err := sleepCtx(ctx, s.retry.Backoff(attempt)); err != nil {
			return 0, 0, err
		}
	}
	if harvestErr != nil && len(result.Rows) == 0 {
		return 0, 0, harvestErr
	}
	if harvestErr != nil {
		s.logger.Warn("retries exhausted, persisting partial harvest",
			zap.String("center", center.Code),
			zap.Int("rows", len(result.Rows)),
			zap.Error(harvestErr),
		)
	}
	metrics.ObservePage("incidents", result.StatusCode)

	incidents, err := wildweb.BuildIncidents(center, result.Rows, s.idGen, s.hasher, s.clock)
	if err != nil {
		return 0, 0, fmt.Errorf("build incidents for %s: %w", center.Code, err)
	}
	saved, err := s.store.UpsertIncidents(ctx, incidents)
	if err != nil {
		return 0, 0, fmt.Errorf("save incidents for %s: %w", center.Code, err)
	}

	if s.snaps != nil && len(result.HTML) > 0 {
		path := cycleID + "/" + center.Code + ".html"
		uri, err := s.snaps.PutObject(ctx, path, "text/html", result.HTML)
		if err != nil {
			// Snapshots are best effort; the incidents are already saved.
			s.logger.Warn("snapshot write failed",
				zap.String("center", center.Code),
				zap.Error(err),
			)
		} else {
			s.logger.Debug("snapshot written", zap.String("uri", uri))
		}
	}
	return result.Processed, saved, harvestErr
}

// checkCompleteness enforces the harvest success criteria: at least one
// row, and every advertised row surfaced.
func checkCompleteness(result wildweb.GridResult) error {
	if len(result.Rows) == 0 {
		return fmt.Errorf("%w: no rows surfaced", wildweb.ErrIncompleteHarvest)
	}
	if result.Target > 0 && result.Processed < result.Target {
		return fmt.Errorf("%w: %d of %d rows", wildweb.ErrIncompleteHarvest, result.Processed, result.Target)
	}
	return nil
}

func (s *Scraper) centerGridURL(code string) string {
	return s.cfg.Scraper.IncidentsURL + "?dc_Name=" + url.QueryEscape(code)
}

func (s *Scraper) logStateSummary(ctx context.Context, logger *zap.Logger) {
	summary, err := s.store.StateSummary(ctx)
	if err != nil {
		logger.Warn("state summary failed", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(summary))
	for _, sc := range summary {
		fields = append(fields, zap.Int(sc.State, sc.Centers))
	}
	logger.Info("dispatch centers by state", fields...)
}

// finishCycle emits the terminal cycle event and normalizes the error.
func (s *Scraper) finishCycle(
	ctx context.Context,
	logger *zap.Logger,
	cycleID [16]byte,
	started time.Time,
	counters wildweb.CycleCounters,
	err error,
) error {
	now := s.clock.Now()
	elapsed := now.Sub(started)
	if err == nil {
		s.emit(progress.Event{
			CycleID:  cycleID,
			TS:       now,
			Stage:    progress.StageCycleDone,
			Counters: counters,
			Dur:      elapsed,
		})
		logger.Info("scrape cycle complete",
			zap.Int("centers_found", counters.CentersFound),
			zap.Int("centers_scraped", counters.CentersScraped),
			zap.Int("centers_failed", counters.CentersFailed),
			zap.Int("incidents_saved", counters.IncidentsSaved),
			zap.Int("retries", counters.Retries),
			zap.Duration("dur", elapsed),
		)
		return nil
	}

	note := err.Error()
	if ctx.Err() != nil {
		note = "canceled: " + note
	}
	s.emit(progress.Event{
		CycleID:  cycleID,
		TS:       now,
		Stage:    progress.StageCycleError,
		Counters: counters,
		Dur:      elapsed,
		Note:     note,
	})
	logger.Error("scrape cycle failed",
		zap.Int("centers_scraped", counters.CentersScraped),
		zap.Duration("dur", elapsed),
		zap.Error(err),
	)
	return err
}

func (s *Scraper) emit(evt progress.Event) {
	if s.emitter != nil {
		s.emitter.Emit(evt)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
