// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// PushStatus is the per-record outcome of a push.
type PushStatus string

const (
	PushStatusAcked    PushStatus = "acked"
	PushStatusRejected PushStatus = "rejected"
)

// PushRequest is the body of POST /api/sync/push.
type PushRequest struct {
	Records []Record `json:"records"`
}

// PushItemResult describes what the remote store did with one pushed record.
//
// For acknowledged records ServerTimestamp is the LastModified value the
// remote store now holds for the id. It is never smaller than the pushed
// LastModified; it is larger when the remote already held a newer version.
type PushItemResult struct {
	ID              string     `json:"id"`
	Status          PushStatus `json:"status"`
	ServerTimestamp int64      `json:"server_timestamp,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

// Acked reports whether the remote store accepted the record.
func (r PushItemResult) Acked() bool {
	return r.Status == PushStatusAcked
}

// PushResponse is the body returned by POST /api/sync/push.
type PushResponse struct {
	Results []PushItemResult `json:"results"`
}

// PullRequest is the body of POST /api/sync/pull.
type PullRequest struct {
	Cursor   Cursor `json:"cursor"`
	PageSize int    `json:"page_size"`
}

// PullPage is one page of the remote change feed.
type PullPage struct {
	Records    []Record `json:"records"`
	NextCursor Cursor   `json:"next_cursor"`
	HasMore    bool     `json:"has_more"`
}

// MergeOutcome is the result of reconciling one remote record with the local
// copy of the same id.
type MergeOutcome string

const (
	// MergeInserted means the record did not exist locally and was created
	// Clean from the remote version.
	MergeInserted MergeOutcome = "inserted"

	// MergeRemoteWins means the remote version replaced the local one.
	MergeRemoteWins MergeOutcome = "remote_wins"

	// MergeLocalWins means the local version is newer and was kept Dirty for
	// the next push.
	MergeLocalWins MergeOutcome = "local_wins"

	// MergeDeleted means a remote tombstone purged the local record.
	MergeDeleted MergeOutcome = "deleted"

	// MergeConflicted means a remote tombstone met a newer local edit. The
	// record is kept and flagged Conflicted.
	MergeConflicted MergeOutcome = "conflicted"

	// MergeUnchanged means local and remote already agree.
	MergeUnchanged MergeOutcome = "unchanged"
)

// MergeResult pairs a record id with its merge outcome.
type MergeResult struct {
	ID      string
	Outcome MergeOutcome
}

// Phase is the state of the synchronization state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePushing Phase = "pushing"
	PhasePulling Phase = "pulling"
	PhaseMerging Phase = "merging"
	PhaseError   Phase = "error"
)

// TriggerReason names what asked the orchestrator to run a cycle.
type TriggerReason string

const (
	TriggerManual      TriggerReason = "manual"
	TriggerPeriodic    TriggerReason = "periodic"
	TriggerReachable   TriggerReason = "reachable"
	TriggerRetry       TriggerReason = "retry"
	TriggerCredentials TriggerReason = "credentials_refreshed"
)

// CycleReport summarises one completed or aborted sync cycle.
type CycleReport struct {
	Reason    TriggerReason
	Pushed    int
	Rejected  int
	Pulled    int
	Conflicts int
	StartedAt time.Time
	Duration  time.Duration

	// Rejections and Conflicted carry the per-record problems surfaced by
	// the cycle. They do not make the cycle fail.
	Rejections []error
	Conflicted []error
}

// CycleResult is delivered to everyone waiting on a triggered cycle.
type CycleResult struct {
	Report CycleReport
	Err    error
}

// SyncStatus is a point-in-time snapshot of the orchestrator.
type SyncStatus struct {
	Phase     Phase
	RetryAt   time.Time
	LastError error
	LastCycle *CycleReport

	// AuthBlocked is true while automatic triggers are suspended after an
	// authentication failure.
	AuthBlocked bool
}
