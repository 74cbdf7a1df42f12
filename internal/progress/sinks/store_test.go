package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/graviris/wildweb-scraper/internal/progress"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

type fakeCycleStore struct {
	wildweb.Store

	records []wildweb.CycleRecord
	err     error
}

func (f *fakeCycleStore) RecordCycle(_ context.Context, record wildweb.CycleRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

// TestStoreSinkCycleLifecycle checks the running row and the finished row with counters.
func TestStoreSinkCycleLifecycle(t *testing.T) {
	t.Parallel()

	store := &fakeCycleStore{}
	sink := NewStoreSink(store, nil)
	cycleUUID := uuid.New()
	cycleID := progress.UUIDToBytes(cycleUUID)
	start := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	counters := wildweb.CycleCounters{CentersFound: 8, CentersScraped: 7, CentersFailed: 1, IncidentsSaved: 120}

	batch := []progress.Event{
		{CycleID: cycleID, Stage: progress.StageCycleStart, TS: start},
		{CycleID: cycleID, Stage: progress.StageCycleDone, TS: start.Add(10 * time.Minute), Counters: counters, Dur: 10 * time.Minute},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Len(t, store.records, 2)
	running := store.records[0]
	require.Equal(t, cycleUUID.String(), running.ID)
	require.Equal(t, wildweb.CycleStatusRunning, running.Status)
	require.True(t, running.Started.Equal(start))
	require.Nil(t, running.Finished)

	done := store.records[1]
	require.Equal(t, wildweb.CycleStatusSucceeded, done.Status)
	require.True(t, done.Started.Equal(start), "start time tracked across events")
	require.NotNil(t, done.Finished)
	require.Equal(t, counters, done.Counters)
}

func TestStoreSinkErrorAndCanceled(t *testing.T) {
	t.Parallel()

	store := &fakeCycleStore{}
	sink := NewStoreSink(store, nil)
	now := time.Now().UTC()

	failed := progress.UUIDToBytes(uuid.New())
	canceled := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{CycleID: failed, Stage: progress.StageCycleError, TS: now, Note: "no dispatch center could be harvested"},
		{CycleID: canceled, Stage: progress.StageCycleError, TS: now, Note: "canceled: context canceled"},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Len(t, store.records, 2)
	require.Equal(t, wildweb.CycleStatusFailed, store.records[0].Status)
	require.Equal(t, "no dispatch center could be harvested", store.records[0].ErrorText)
	require.Equal(t, wildweb.CycleStatusCanceled, store.records[1].Status)
}

// TestStoreSinkFinishWithoutStart falls back to the event timestamp.
func TestStoreSinkFinishWithoutStart(t *testing.T) {
	t.Parallel()

	store := &fakeCycleStore{}
	sink := NewStoreSink(store, nil)
	now := time.Now().UTC()

	evt := progress.Event{
		CycleID: progress.UUIDToBytes(uuid.New()),
		Stage:   progress.StageCycleDone,
		TS:      now,
	}
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt}))
	require.Len(t, store.records, 1)
	require.True(t, store.records[0].Started.Equal(now))
}

func TestStoreSinkSurfacesErrors(t *testing.T) {
	t.Parallel()

	store := &fakeCycleStore{err: errors.New("disk full")}
	sink := NewStoreSink(store, nil)
	evt := progress.Event{
		CycleID: progress.UUIDToBytes(uuid.New()),
		Stage:   progress.StageCycleStart,
		TS:      time.Now(),
	}
	err := sink.Consume(context.Background(), []progress.Event{evt})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

// TestStoreSinkIgnoresCenterEvents keeps write volume down to cycle rows.
func TestStoreSinkIgnoresCenterEvents(t *testing.T) {
	t.Parallel()

	store := &fakeCycleStore{}
	sink := NewStoreSink(store, nil)
	evt := progress.Event{
		CycleID: progress.UUIDToBytes(uuid.New()),
		Stage:   progress.StageCenterDone,
		Center:  "CAGVC",
		TS:      time.Now(),
	}
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt}))
	require.Empty(t, store.records)
}
