package store

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Resolver decides how a remote record is merged into the local copy of the
// same id. local is nil when the id is unknown locally. Implementations must
// be pure.
type Resolver interface {
	Resolve(local *models.Record, remote models.Record) models.MergeOutcome
}

// LocalStore is the durable client-side record store.
//
// Every method that changes a record's payload marks it Dirty and assigns a
// fresh logical timestamp in the same transaction; there is no way to write a
// payload without dirtying it. All mutations are atomic with respect to
// readers.
type LocalStore interface {
	// Get returns the record with the given id, tombstones included.
	Get(ctx context.Context, id string) (models.Record, error)

	// List returns every live (non-tombstoned) record ordered by id.
	List(ctx context.Context) ([]models.Record, error)

	// Put writes payload under id, creating or reviving the record.
	Put(ctx context.Context, id string, payload json.RawMessage) (models.Record, error)

	// Delete turns the record into a Dirty tombstone.
	Delete(ctx context.Context, id string) (models.Record, error)

	// ListDirty returns up to limit Dirty records strictly after the keyset
	// position after, ordered by (LastModified, ID).
	ListDirty(ctx context.Context, after models.DirtyKey, limit int) ([]models.Record, error)

	// CountPending returns the number of Dirty and Conflicted records.
	CountPending(ctx context.Context) (int, error)

	// MarkClean records a remote acknowledgement of the version pushed with
	// ackedLastModified. It reports false and leaves the record untouched
	// when the record was modified again after that version was read.
	// Acknowledged tombstones are purged.
	MarkClean(ctx context.Context, id string, ackedLastModified int64) (bool, error)

	// ApplyRemote merges a single remote record using resolver.
	ApplyRemote(ctx context.Context, remote models.Record, resolver Resolver) (models.MergeOutcome, error)

	// ApplyRemotePage merges a page of remote records and, when next is not
	// empty, advances the stored cursor to next, all in one transaction.
	ApplyRemotePage(ctx context.Context, records []models.Record, next models.Cursor, resolver Resolver) ([]models.MergeResult, error)

	// KeepLocal resolves a Conflicted record in favour of the local edit: the
	// record becomes Dirty again with a fresh timestamp.
	KeepLocal(ctx context.Context, id string) (models.Record, error)

	// AcceptRemoteDeletion resolves a Conflicted record in favour of the
	// remote deletion and purges it.
	AcceptRemoteDeletion(ctx context.Context, id string) error

	// Cursor returns the stored change-feed position; empty before the first
	// merged page.
	Cursor(ctx context.Context) (models.Cursor, error)

	// SetCursor overwrites the stored change-feed position.
	SetCursor(ctx context.Context, cursor models.Cursor) error

	Close() error
}

// RemoteRecordRepository is the server-side authoritative record store. Each
// owner has an independent record set and change feed.
type RemoteRecordRepository interface {
	// Apply writes rec with last-writer-wins semantics and returns the version
	// the store holds afterwards.
	Apply(ctx context.Context, owner string, rec models.Record) (models.Record, error)

	// ChangesSince returns up to limit changes with a sequence number greater
	// than afterSeq, in sequence order.
	ChangesSince(ctx context.Context, owner string, afterSeq int64, limit int) ([]RemoteChange, error)
}

// RemoteChange is one entry of the server change feed.
type RemoteChange struct {
	Seq    int64
	Record models.Record
}
