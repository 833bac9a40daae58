package models

// Event is implemented by every notification published on the event bus.
type Event interface {
	EventName() string
}

// RecordChanged is published whenever the content or state of a local record
// changes, whether through a local mutation or a merge.
type RecordChanged struct {
	ID string
}

// SyncCycleCompleted is published after every cycle that reached the end of
// the merge phase.
type SyncCycleCompleted struct {
	Pushed    int
	Pulled    int
	Conflicts int
}

// RecordRejected is published when the remote store refused a pushed record.
type RecordRejected struct {
	ID     string
	Reason string
}

// RecordConflicted is published when a remote deletion met a newer local edit.
type RecordConflicted struct {
	ID string
}

// SyncStatusChanged is published on every orchestrator phase transition.
type SyncStatusChanged struct {
	Status SyncStatus
}

func (RecordChanged) EventName() string      { return "record_changed" }
func (SyncCycleCompleted) EventName() string { return "sync_cycle_completed" }
func (RecordRejected) EventName() string     { return "record_rejected" }
func (RecordConflicted) EventName() string   { return "record_conflicted" }
func (SyncStatusChanged) EventName() string  { return "sync_status_changed" }
