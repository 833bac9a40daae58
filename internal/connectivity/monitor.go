// Package connectivity turns raw reachability observations into debounced,
// edge-triggered events for the sync engine.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

const eventBuffer = 16

// Event reports a change of reachability.
type Event struct {
	Reachable bool
	At        time.Time
}

// Monitor emits an Event only when the reachability state flips.
//
// Reachable edges are rate limited: two Reachable events are never closer
// than the debounce interval. A Reachable edge that arrives inside the window
// is held until the window closes and is dropped if connectivity is lost
// again in the meantime. Unreachable edges are emitted immediately so that
// in-flight work can be cancelled without delay.
type Monitor struct {
	debounce time.Duration
	logger   *logger.Logger
	events   chan Event

	mu            sync.Mutex
	observed      bool
	emitted       bool
	lastReachable time.Time
	pending       *time.Timer
	generation    uint64
}

// NewMonitor returns a Monitor that starts in the unreachable state.
func NewMonitor(debounce time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		debounce: debounce,
		logger:   log,
		events:   make(chan Event, eventBuffer),
	}
}

// Events returns the channel on which state changes are delivered. When the
// consumer falls behind, the oldest undelivered event is discarded.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Reachable returns the most recently observed state.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed
}

// Report records an observation from a platform hook or a prober.
func (m *Monitor) Report(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observed = reachable

	if !reachable {
		m.stopPending()
		if m.emitted {
			m.emitted = false
			m.emit(false)
		}
		return
	}

	if m.emitted || m.pending != nil {
		return
	}

	wait := time.Until(m.lastReachable.Add(m.debounce))
	if m.lastReachable.IsZero() || wait <= 0 {
		m.emitReachable()
		return
	}

	m.logger.Debug().
		Str("func", "Monitor.Report").
		Dur("wait", wait).
		Msg("reachable edge deferred by debounce")
	m.generation++
	gen := m.generation
	m.pending = time.AfterFunc(wait, func() { m.firePending(gen) })
}

// Stop cancels a deferred Reachable edge.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPending()
}

func (m *Monitor) firePending(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// superseded by a later Report
	if gen != m.generation || m.pending == nil {
		return
	}

	m.pending = nil
	if m.observed && !m.emitted {
		m.emitReachable()
	}
}

func (m *Monitor) stopPending() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
		m.generation++
	}
}

func (m *Monitor) emitReachable() {
	m.emitted = true
	m.lastReachable = time.Now()
	m.emit(true)
}

func (m *Monitor) emit(reachable bool) {
	ev := Event{Reachable: reachable, At: time.Now()}
	m.logger.Info().
		Str("func", "Monitor.emit").
		Bool("reachable", reachable).
		Msg("connectivity changed")

	select {
	case m.events <- ev:
		return
	default:
	}

	select {
	case <-m.events:
	default:
	}
	select {
	case m.events <- ev:
	default:
	}
}

// Watch probes reachability immediately and then every interval until ctx
// is done, reporting each result.
func (m *Monitor) Watch(ctx context.Context, prober Prober, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.Report(prober.Probe(ctx) == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
