package service

import (
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// ConflictResolver decides how a pulled record is merged into the local copy
// of the same id. It is a pure function of its inputs.
type ConflictResolver struct{}

// NewConflictResolver returns the last-writer-wins resolver.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

// Resolve implements store.Resolver.
//
//   - unknown locally: inserted, or ignored when the remote is a tombstone
//   - remote tombstone: the local copy is deleted unless it carries a pending
//     live edit newer than the tombstone, which is reported as a conflict, or
//     is itself a newer tombstone
//   - otherwise the newer LastModified wins
//   - equal timestamps: identical content is unchanged, anything else is
//     taken from the remote so that every replica converges on the same
//     version
func (r *ConflictResolver) Resolve(local *models.Record, remote models.Record) models.MergeOutcome {
	if local == nil {
		if remote.Tombstone {
			return models.MergeUnchanged
		}
		return models.MergeInserted
	}

	if remote.Tombstone {
		switch {
		case local.Tombstone && local.LastModified > remote.LastModified:
			return models.MergeLocalWins
		case !local.Tombstone && local.IsPending() && local.LastModified > remote.LastModified:
			return models.MergeConflicted
		}
		return models.MergeDeleted
	}

	switch {
	case remote.LastModified > local.LastModified:
		return models.MergeRemoteWins
	case remote.LastModified < local.LastModified:
		return models.MergeLocalWins
	case !local.Tombstone && utils.PayloadDigest(local.Payload) == utils.PayloadDigest(remote.Payload):
		return models.MergeUnchanged
	default:
		return models.MergeRemoteWins
	}
}
