package sinks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/progress"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// StoreSink persists cycle audit rows via a wildweb.Store. Cycle start events
// open a running record; completion events finalize it with counters.
type StoreSink struct {
	store  wildweb.Store
	logger *zap.Logger

	mu     sync.Mutex
	starts map[[16]byte]time.Time
}

// NewStoreSink constructs a StoreSink for the provided store.
func NewStoreSink(store wildweb.Store, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{
		store:  store,
		logger: logger,
		starts: make(map[[16]byte]time.Time),
	}
}

// Consume forwards cycle lifecycle events to the store. Center events carry
// no durable state of their own and are skipped. Repository errors are
// returned verbatim so the hub can log them.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.store == nil {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageCycleStart:
			if err := s.handleStart(ctx, evt); err != nil {
				return err
			}
		case progress.StageCycleDone, progress.StageCycleError:
			if err := s.handleFinish(ctx, evt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *StoreSink) handleStart(ctx context.Context, evt progress.Event) error {
	s.mu.Lock()
	s.starts[evt.CycleID] = evt.TS
	s.mu.Unlock()

	record := wildweb.CycleRecord{
		ID:      evt.CycleUUID().String(),
		Started: evt.TS,
		Status:  wildweb.CycleStatusRunning,
	}
	if err := s.store.RecordCycle(ctx, record); err != nil {
		return fmt.Errorf("record cycle start: %w", err)
	}
	return nil
}

func (s *StoreSink) handleFinish(ctx context.Context, evt progress.Event) error {
	s.mu.Lock()
	started, ok := s.starts[evt.CycleID]
	delete(s.starts, evt.CycleID)
	s.mu.Unlock()
	if !ok {
		// Start event was dropped or predates this process; the store keeps
		// the original started_at on conflict, so the fallback is harmless.
		started = evt.TS
	}

	finished := evt.TS
	record := wildweb.CycleRecord{
		ID:       evt.CycleUUID().String(),
		Started:  started,
		Finished: &finished,
		Status:   finishStatus(evt),
		Counters: evt.Counters,
	}
	if evt.Stage == progress.StageCycleError {
		record.ErrorText = evt.Note
	}
	if err := s.store.RecordCycle(ctx, record); err != nil {
		return fmt.Errorf("record cycle finish: %w", err)
	}
	return nil
}

func finishStatus(evt progress.Event) wildweb.CycleStatus {
	if evt.Stage == progress.StageCycleDone {
		return wildweb.CycleStatusSucceeded
	}
	if strings.HasPrefix(evt.Note, "canceled") {
		return wildweb.CycleStatusCanceled
	}
	return wildweb.CycleStatusFailed
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
