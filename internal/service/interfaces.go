package service

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-sync/models"
)

// RecordService is the only path through which the application changes
// records. Every mutation goes through the local store, which dirties the
// record and stamps it in the same transaction, and announces a
// RecordChanged event.
type RecordService interface {
	// Create stores a new record under a freshly generated id.
	Create(ctx context.Context, payload json.RawMessage) (models.Record, error)

	// Put creates or replaces the record with the given id.
	Put(ctx context.Context, id string, payload json.RawMessage) (models.Record, error)

	// Delete tombstones the record. The tombstone is purged once the remote
	// store has acknowledged it.
	Delete(ctx context.Context, id string) (models.Record, error)

	// Get returns a live record. Tombstoned records are reported as
	// ErrRecordNotFound.
	Get(ctx context.Context, id string) (models.Record, error)

	// List returns all live records.
	List(ctx context.Context) ([]models.Record, error)

	// ResolveConflict settles a Conflicted record: keepLocal re-queues the
	// local edit for push, otherwise the remote deletion is accepted.
	ResolveConflict(ctx context.Context, id string, keepLocal bool) error
}

// SyncOrchestrator sequences push, pull and merge. At most one cycle runs at
// a time; triggers that arrive while a cycle is running are coalesced into a
// single follow-up cycle.
type SyncOrchestrator interface {
	// Start makes the orchestrator accept triggers. Cycles run under ctx.
	Start(ctx context.Context)

	// Stop cancels the running cycle, disarms the retry timer and waits for
	// the cycle goroutine to exit.
	Stop()

	// Trigger requests a cycle. The returned channel receives exactly one
	// result: that of the cycle which served this trigger.
	Trigger(reason models.TriggerReason) <-chan models.CycleResult

	// SyncNow runs a manual cycle and waits for its result.
	SyncNow(ctx context.Context) (models.CycleReport, error)

	// Status returns a snapshot of the state machine.
	Status() models.SyncStatus

	// ConnectivityLost abandons the network calls of the running cycle.
	ConnectivityLost()

	// CredentialsRefreshed installs a new bearer token, lifts an
	// authorization block and starts a cycle.
	CredentialsRefreshed(token string) <-chan models.CycleResult
}

// RemoteSyncService is the server side of the push/pull protocol.
type RemoteSyncService interface {
	Push(ctx context.Context, owner string, records []models.Record) (models.PushResponse, error)
	Pull(ctx context.Context, owner string, req models.PullRequest) (models.PullPage, error)
}

// AuthService issues and verifies the bearer tokens of the sync server. The
// token subject names the owner whose record set a request operates on.
type AuthService interface {
	IssueToken(ctx context.Context, owner string) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// AppInfoService exposes build information of the running server.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
