package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextTickAfterStaysOnGrid(t *testing.T) {
	anchor := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	interval := 5 * time.Minute

	assert.Equal(t, anchor.Add(5*time.Minute), nextTickAfter(anchor, interval, anchor))
	assert.Equal(t, anchor.Add(5*time.Minute), nextTickAfter(anchor, interval, anchor.Add(3*time.Minute)))
	// A slow task that overruns one slot skips to the next grid point.
	assert.Equal(t, anchor.Add(10*time.Minute), nextTickAfter(anchor, interval, anchor.Add(6*time.Minute)))
	assert.Equal(t, anchor, nextTickAfter(anchor, interval, anchor.Add(-time.Minute)))
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(ctx, 50*time.Millisecond)
	s.RunImmediately = true

	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		s.Start(func() { runs.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
