// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// SyncState describes whether a locally stored record has been confirmed by
// the remote store.
type SyncState string

const (
	// SyncStateClean marks a record whose current version is known to the
	// remote store.
	SyncStateClean SyncState = "clean"

	// SyncStateDirty marks a record carrying a local change that has not yet
	// been acknowledged by the remote store.
	SyncStateDirty SyncState = "dirty"

	// SyncStateConflicted marks a record whose local edit collided with a
	// remote deletion and needs an explicit decision from the user.
	SyncStateConflicted SyncState = "conflicted"
)

// IsValid reports whether s is one of the known sync states.
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateClean, SyncStateDirty, SyncStateConflicted:
		return true
	}
	return false
}

// Record is the unit of synchronization shared by the local store, the
// remote gateway and the reference server.
//
// LastModified is a monotonically assigned logical timestamp in Unix
// milliseconds. A Record with Tombstone set represents a deletion: its
// Payload is empty and only its identity is meaningful.
type Record struct {
	// ID is the globally unique record identifier (UUIDv7 for records
	// created through RecordService).
	ID string `json:"id"`

	// Payload is the opaque JSON document owned by the application.
	Payload json.RawMessage `json:"payload,omitempty"`

	// LastModified is the logical modification timestamp.
	LastModified int64 `json:"last_modified"`

	// Tombstone marks the record as deleted.
	Tombstone bool `json:"tombstone"`

	// SyncState is local bookkeeping and never travels over the wire.
	SyncState SyncState `json:"-"`
}

// IsPending reports whether the record still carries a change that the
// remote store has not acknowledged.
func (r Record) IsPending() bool {
	return r.SyncState == SyncStateDirty || r.SyncState == SyncStateConflicted
}

// Cursor is the opaque change-feed position returned by the remote store.
// The client stores it verbatim and never interprets its contents.
type Cursor string

// DirtyKey is the keyset position used to page through dirty records in
// (LastModified, ID) order. The zero value starts from the beginning.
type DirtyKey struct {
	LastModified int64
	ID           string
}

// KeyOf returns the keyset position directly after rec.
func KeyOf(rec Record) DirtyKey {
	return DirtyKey{LastModified: rec.LastModified, ID: rec.ID}
}
