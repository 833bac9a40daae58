// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface and a Workers aggregate that allows
// running multiple workers in a unified way.
package workers

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Worker is the interface that must be implemented by any background worker.
//
// Run blocks until ctx is done. Implementations must return promptly once
// ctx is cancelled.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    <-ctx.Done()
//	}
type Worker interface {
	Run(ctx context.Context)
}

// SyncTrigger is the part of the sync orchestrator driven by background
// workers.
type SyncTrigger interface {
	Trigger(reason models.TriggerReason) <-chan models.CycleResult
	ConnectivityLost()
}
