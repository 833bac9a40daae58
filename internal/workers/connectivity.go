package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/connectivity"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

type connectivityListener struct {
	events <-chan connectivity.Event
	sync   SyncTrigger
	logger *logger.Logger
}

// NewConnectivityListener returns a worker that forwards monitor events to
// the orchestrator: a Reachable edge starts a cycle, an Unreachable edge
// abandons the network calls of the running one.
func NewConnectivityListener(events <-chan connectivity.Event, sync SyncTrigger, log *logger.Logger) Worker {
	return &connectivityListener{events: events, sync: sync, logger: log}
}

func (l *connectivityListener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.events:
			if !ok {
				return
			}
			l.logger.Info().
				Str("func", "connectivityListener.Run").
				Bool("reachable", ev.Reachable).
				Time("at", ev.At).
				Msg("connectivity event")

			if ev.Reachable {
				l.sync.Trigger(models.TriggerReachable)
			} else {
				l.sync.ConnectivityLost()
			}
		}
	}
}

type prober struct {
	monitor  *connectivity.Monitor
	prober   connectivity.Prober
	interval time.Duration
}

// NewProber returns a worker that actively probes the remote side and feeds
// the results into monitor.
func NewProber(monitor *connectivity.Monitor, p connectivity.Prober, interval time.Duration) Worker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &prober{monitor: monitor, prober: p, interval: interval}
}

func (p *prober) Run(ctx context.Context) {
	defer p.monitor.Stop()
	p.monitor.Watch(ctx, p.prober, p.interval)
}
