package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

const defaultSyncInterval = 5 * time.Minute

type periodicTrigger struct {
	sync     SyncTrigger
	interval time.Duration
	logger   *logger.Logger
}

// NewPeriodicTrigger returns a worker that requests a periodic sync cycle
// every interval. A non-positive interval defaults to 5 minutes.
func NewPeriodicTrigger(sync SyncTrigger, interval time.Duration, log *logger.Logger) Worker {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &periodicTrigger{sync: sync, interval: interval, logger: log}
}

func (p *periodicTrigger) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.logger.Debug().Str("func", "periodicTrigger.Run").Msg("periodic sync requested")
			// the result is delivered on a buffered channel; nobody waits for it
			p.sync.Trigger(models.TriggerPeriodic)
		}
	}
}
