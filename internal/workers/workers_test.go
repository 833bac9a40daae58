// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/connectivity"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// countingWorker counts Run calls and blocks until ctx is done.
type countingWorker struct {
	runs atomic.Int64
}

func (c *countingWorker) Run(ctx context.Context) {
	c.runs.Add(1)
	<-ctx.Done()
}

// spyTrigger records the orchestrator calls made by workers.
type spyTrigger struct {
	mu      sync.Mutex
	reasons []models.TriggerReason
	lost    int
}

func (s *spyTrigger) Trigger(reason models.TriggerReason) <-chan models.CycleResult {
	s.mu.Lock()
	s.reasons = append(s.reasons, reason)
	s.mu.Unlock()

	ch := make(chan models.CycleResult, 1)
	ch <- models.CycleResult{}
	return ch
}

func (s *spyTrigger) ConnectivityLost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost++
}

func (s *spyTrigger) snapshot() ([]models.TriggerReason, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TriggerReason(nil), s.reasons...), s.lost
}

// ── Workers ──────────────────────────────────────────────────────────────────

func TestWorkers_Run_AllWorkersAreCalled(t *testing.T) {
	w1, w2, w3 := &countingWorker{}, &countingWorker{}, &countingWorker{}
	ws := NewWorkers(w1, w2, w3)

	ctx, cancel := context.WithCancel(context.Background())
	ws.Run(ctx)

	require.Eventually(t, func() bool {
		return w1.runs.Load() == 1 && w2.runs.Load() == 1 && w3.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	ws.Wait()
}

func TestWorkers_Run_Empty(t *testing.T) {
	ws := NewWorkers()

	// Should not panic or block on an empty list
	ws.Run(context.Background())
	ws.Wait()
}

func TestWorkers_Wait_ReturnsAfterCancel(t *testing.T) {
	ws := NewWorkers(&countingWorker{}, &countingWorker{})
	ctx, cancel := context.WithCancel(context.Background())
	ws.Run(ctx)

	done := make(chan struct{})
	go func() {
		ws.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the workers were cancelled")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

// ── periodic trigger ─────────────────────────────────────────────────────────

func TestPeriodicTrigger_Run(t *testing.T) {
	spy := &spyTrigger{}
	w := NewPeriodicTrigger(spy, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	reasons, _ := spy.snapshot()
	assert.GreaterOrEqual(t, len(reasons), 3, "expected several ticks, got %d", len(reasons))
	for _, r := range reasons {
		assert.Equal(t, models.TriggerPeriodic, r)
	}

	// no more triggers after Run returned
	time.Sleep(30 * time.Millisecond)
	after, _ := spy.snapshot()
	assert.Len(t, after, len(reasons))
}

func TestPeriodicTrigger_DefaultInterval(t *testing.T) {
	w := NewPeriodicTrigger(&spyTrigger{}, 0, logger.Nop()).(*periodicTrigger)
	assert.Equal(t, defaultSyncInterval, w.interval)
}

// ── connectivity ─────────────────────────────────────────────────────────────

func TestConnectivityListener_Run(t *testing.T) {
	events := make(chan connectivity.Event, 3)
	spy := &spyTrigger{}
	w := NewConnectivityListener(events, spy, logger.Nop())

	events <- connectivity.Event{Reachable: true, At: time.Now()}
	events <- connectivity.Event{Reachable: false, At: time.Now()}
	events <- connectivity.Event{Reachable: true, At: time.Now()}
	close(events)

	// returns once the channel is closed
	w.Run(context.Background())

	reasons, lost := spy.snapshot()
	assert.Equal(t, []models.TriggerReason{models.TriggerReachable, models.TriggerReachable}, reasons)
	assert.Equal(t, 1, lost)
}

func TestConnectivityListener_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewConnectivityListener(make(chan connectivity.Event), &spyTrigger{}, logger.Nop())
	w.Run(ctx)
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }

func TestProber_FeedsMonitor(t *testing.T) {
	monitor := connectivity.NewMonitor(0, logger.Nop())

	var healthy atomic.Bool
	healthy.Store(true)
	p := probeFunc(func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewProber(monitor, p, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	select {
	case ev := <-monitor.Events():
		assert.True(t, ev.Reachable)
	case <-time.After(time.Second):
		t.Fatal("no reachable event")
	}

	healthy.Store(false)
	select {
	case ev := <-monitor.Events():
		assert.False(t, ev.Reachable)
	case <-time.After(time.Second):
		t.Fatal("no unreachable event")
	}

	cancel()
	<-done
}
