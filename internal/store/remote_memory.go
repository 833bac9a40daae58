package store

import (
	"context"
	"sort"
	"sync"

	"github.com/MKhiriev/go-offline-sync/models"
)

type memoryEntry struct {
	rec models.Record
	seq int64
}

// feedItem is one position in an owner's change log. It is stale once the
// record was written again under a higher seq.
type feedItem struct {
	seq int64
	id  string
}

// ownerFeed holds the records of one owner plus their change log in
// ascending seq order.
type ownerFeed struct {
	records map[string]*memoryEntry
	log     []feedItem
	stale   int
}

// record appends the position of an entry that was just written. rewrite
// reports that an earlier position of the same id became stale.
func (f *ownerFeed) record(id string, seq int64, rewrite bool) {
	if rewrite {
		f.stale++
	}
	f.log = append(f.log, feedItem{seq: seq, id: id})

	if f.stale > len(f.log)/2 {
		f.compact()
	}
}

func (f *ownerFeed) compact() {
	live := f.log[:0]
	for _, item := range f.log {
		if f.records[item.id].seq == item.seq {
			live = append(live, item)
		}
	}
	clear(f.log[len(live):])
	f.log, f.stale = live, 0
}

type memoryRemoteRepository struct {
	mu     sync.RWMutex
	seq    int64
	owners map[string]*ownerFeed
}

// NewMemoryRemoteRepository returns a RemoteRecordRepository that keeps all
// data in process memory.
func NewMemoryRemoteRepository() RemoteRecordRepository {
	return &memoryRemoteRepository{owners: make(map[string]*ownerFeed)}
}

func (m *memoryRemoteRepository) Apply(ctx context.Context, owner string, rec models.Record) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.owners[owner]
	if !ok {
		feed = &ownerFeed{records: make(map[string]*memoryEntry)}
		m.owners[owner] = feed
	}

	rec = cleanCopy(rec)
	entry := feed.records[rec.ID]

	var stored *models.Record
	if entry != nil {
		stored = &entry.rec
	}

	switch decideRemoteWrite(stored, rec) {
	case remoteInsert:
		m.seq++
		feed.records[rec.ID] = &memoryEntry{rec: rec, seq: m.seq}
		feed.record(rec.ID, m.seq, false)
		return rec, nil
	case remoteOverwrite:
		m.seq++
		entry.rec, entry.seq = rec, m.seq
		feed.record(rec.ID, m.seq, true)
	case remoteReannounce:
		m.seq++
		entry.seq = m.seq
		feed.record(rec.ID, m.seq, true)
	}

	return entry.rec, nil
}

// ChangesSince binary-searches the owner's log for afterSeq and walks forward,
// skipping stale positions, until limit live changes are collected.
func (m *memoryRemoteRepository) ChangesSince(ctx context.Context, owner string, afterSeq int64, limit int) ([]RemoteChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	changes := make([]RemoteChange, 0)
	feed, ok := m.owners[owner]
	if !ok {
		return changes, nil
	}

	start := sort.Search(len(feed.log), func(i int) bool { return feed.log[i].seq > afterSeq })
	for _, item := range feed.log[start:] {
		if limit > 0 && len(changes) == limit {
			break
		}
		entry := feed.records[item.id]
		if entry.seq != item.seq {
			continue
		}
		changes = append(changes, RemoteChange{Seq: entry.seq, Record: entry.rec})
	}

	return changes, nil
}
