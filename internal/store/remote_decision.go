package store

import (
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// remoteWrite is what the authoritative store does with an incoming record.
type remoteWrite int

const (
	// remoteInsert stores a record the owner did not have yet.
	remoteInsert remoteWrite = iota
	// remoteOverwrite replaces an older stored version.
	remoteOverwrite
	// remoteReannounce keeps the stored version but moves it to the head of
	// the change feed, so that the client which sent the losing version
	// pulls the winner.
	remoteReannounce
	// remoteNoop means the incoming record is an exact duplicate.
	remoteNoop
)

// decideRemoteWrite applies last-writer-wins between the stored version and
// an incoming push. Equal timestamps with different content keep the stored
// version.
func decideRemoteWrite(stored *models.Record, incoming models.Record) remoteWrite {
	switch {
	case stored == nil:
		return remoteInsert
	case incoming.LastModified > stored.LastModified:
		return remoteOverwrite
	case incoming.LastModified < stored.LastModified:
		return remoteReannounce
	case sameContent(*stored, incoming):
		return remoteNoop
	default:
		return remoteReannounce
	}
}

func sameContent(a, b models.Record) bool {
	if a.Tombstone || b.Tombstone {
		return a.Tombstone == b.Tombstone
	}
	return utils.PayloadDigest(a.Payload) == utils.PayloadDigest(b.Payload)
}
