package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int32
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRunner) RunCycle(ctx context.Context) (wildweb.CycleCounters, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return wildweb.CycleCounters{}, nil
}

func (f *fakeRunner) count() int32 {
	return atomic.LoadInt32(&f.calls)
}

// TestSchedulerRunsOnStart verifies the immediate first cycle.
func TestSchedulerRunsOnStart(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{started: make(chan struct{}, 1)}
	s := New(runner, time.Hour, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle never started")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, int32(1), runner.count())
}

// TestSchedulerSkipsOverlappingTicks proves a slow cycle blocks new ones.
func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(runner, 20*time.Millisecond, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle never started")
	}

	// Let several ticks elapse while the first cycle is still blocked.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), runner.count(), "overlapping ticks must be skipped")

	close(runner.block)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

// TestSchedulerTicksAfterCompletion launches fresh cycles once the
// previous one finishes.
func TestSchedulerTicksAfterCompletion(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(runner, 10*time.Millisecond, false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return runner.count() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

// TestSchedulerWaitsForInFlightCycle ensures Run does not return while a
// cycle is still executing.
func TestSchedulerWaitsForInFlightCycle(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner := &fakeRunner{block: release, started: make(chan struct{}, 1)}
	s := New(runner, time.Hour, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle never started")
	}
	cancel()

	select {
	case err := <-done:
		// RunCycle observes ctx.Done and returns, so Run may finish fast;
		// what matters is that it did not outpace the cycle.
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
