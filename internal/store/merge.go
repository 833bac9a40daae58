package store

import (
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// mergeAction is the storage effect of a merge outcome.
type mergeAction int

const (
	actionNone mergeAction = iota
	actionWriteClean
	actionPurge
	actionMarkConflicted
	actionMarkClean
)

// planMerge translates a resolver outcome into the write a store must perform.
func planMerge(local *models.Record, outcome models.MergeOutcome) (mergeAction, error) {
	switch outcome {
	case models.MergeInserted, models.MergeRemoteWins:
		return actionWriteClean, nil
	case models.MergeLocalWins:
		return actionNone, nil
	case models.MergeDeleted:
		if local == nil {
			return actionNone, nil
		}
		return actionPurge, nil
	case models.MergeConflicted:
		if local == nil {
			return actionNone, nil
		}
		return actionMarkConflicted, nil
	case models.MergeUnchanged:
		// The remote already holds exactly our pending version, e.g. our
		// push was applied but its acknowledgement was lost.
		if local != nil && local.SyncState == models.SyncStateDirty {
			if local.Tombstone {
				return actionPurge, nil
			}
			return actionMarkClean, nil
		}
		return actionNone, nil
	}

	return actionNone, fmt.Errorf("unexpected merge outcome %q", outcome)
}

// cleanCopy returns the remote record as it is stored after a remote win.
func cleanCopy(remote models.Record) models.Record {
	remote.SyncState = models.SyncStateClean
	if remote.Tombstone {
		remote.Payload = nil
	}
	return remote
}
