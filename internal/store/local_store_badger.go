package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Key layout:
//
//	rec/<id>                   JSON encoded badgerRecord
//	dirty/<20-digit ts>/<id>   empty; present while the record is Dirty
//	meta/cursor, meta/clock    sync metadata
var (
	recPrefix   = []byte("rec/")
	dirtyPrefix = []byte("dirty/")
	cursorKey   = []byte("meta/cursor")
	clockKey    = []byte("meta/clock")
)

type badgerRecord struct {
	ID           string           `json:"id"`
	Payload      json.RawMessage  `json:"payload,omitempty"`
	LastModified int64            `json:"last_modified"`
	SyncState    models.SyncState `json:"sync_state"`
	Tombstone    bool             `json:"tombstone"`
}

type badgerLocalStore struct {
	db     *badger.DB
	clock  *Clock
	logger *logger.Logger
}

// BadgerOptions configures the badger-backed local store.
type BadgerOptions struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps all data in memory; used by tests.
	InMemory bool
}

// NewBadgerLocalStore opens the badger-backed local store.
func NewBadgerLocalStore(opts BadgerOptions, log *logger.Logger) (LocalStore, error) {
	bopts := badger.DefaultOptions(opts.Dir).
		WithLogger(badgerLogger{log}).
		WithLoggingLevel(badger.WARNING)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		log.Err(err).Str("func", "NewBadgerLocalStore").Msg("error opening badger database")
		return nil, fmt.Errorf("error opening badger database: %w", err)
	}

	last, err := badgerClockHighWater(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("func", "NewBadgerLocalStore").Str("dir", opts.Dir).Msg("opened badger database")

	return &badgerLocalStore{db: db, clock: NewClock(last), logger: log}, nil
}

func badgerClockHighWater(db *badger.DB) (int64, error) {
	var last int64
	err := db.View(func(txn *badger.Txn) error {
		if raw, err := getValue(txn, clockKey); err == nil {
			if last, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
				return fmt.Errorf("corrupt clock value %q: %w", raw, err)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		it := txn.NewIterator(badger.IteratorOptions{Prefix: recPrefix, PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rec, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			last = max(last, rec.LastModified)
		}
		return nil
	})

	return last, err
}

func (s *badgerLocalStore) Get(ctx context.Context, id string) (models.Record, error) {
	var rec *models.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = loadRecord(txn, id)
		return err
	})
	if err != nil {
		return models.Record{}, err
	}

	return *rec, nil
}

func (s *badgerLocalStore) List(ctx context.Context) ([]models.Record, error) {
	records := make([]models.Record, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: recPrefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rec, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			if !rec.Tombstone {
				records = append(records, *rec)
			}
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "badgerLocalStore.List").Msg("failed to list records")
		return nil, err
	}

	return records, nil
}

func (s *badgerLocalStore) ListDirty(ctx context.Context, after models.DirtyKey, limit int) ([]models.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	records := make([]models.Record, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: dirtyPrefix})
		defer it.Close()

		start := dirtyKey(after.LastModified, after.ID)
		for it.Seek(start); it.Valid() && len(records) < limit; it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Equal(key, start) {
				continue
			}

			id, err := idFromDirtyKey(key)
			if err != nil {
				return err
			}
			rec, err := loadRecord(txn, id)
			if err != nil {
				return fmt.Errorf("dangling dirty index entry %q: %w", key, err)
			}
			records = append(records, *rec)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "badgerLocalStore.ListDirty").Msg("failed to list dirty records")
		return nil, err
	}

	return records, nil
}

func (s *badgerLocalStore) CountPending(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: recPrefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rec, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			if rec.IsPending() {
				n++
			}
		}
		return nil
	})

	return n, err
}

func (s *badgerLocalStore) Put(ctx context.Context, id string, payload json.RawMessage) (models.Record, error) {
	var rec models.Record
	err := s.update(ctx, "badgerLocalStore.Put", func(txn *badger.Txn) error {
		current, err := loadRecord(txn, id)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		rec = models.Record{
			ID:           id,
			Payload:      payload,
			LastModified: s.clock.Next(),
			SyncState:    models.SyncStateDirty,
		}
		return s.writeRecord(txn, current, rec)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to put record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *badgerLocalStore) Delete(ctx context.Context, id string) (models.Record, error) {
	var rec models.Record
	err := s.update(ctx, "badgerLocalStore.Delete", func(txn *badger.Txn) error {
		current, err := loadRecord(txn, id)
		if err != nil {
			return err
		}
		if current.Tombstone {
			rec = *current
			return nil
		}

		rec = models.Record{
			ID:           id,
			LastModified: s.clock.Next(),
			SyncState:    models.SyncStateDirty,
			Tombstone:    true,
		}
		return s.writeRecord(txn, current, rec)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to delete record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *badgerLocalStore) MarkClean(ctx context.Context, id string, ackedLastModified int64) (bool, error) {
	marked := false
	err := s.update(ctx, "badgerLocalStore.MarkClean", func(txn *badger.Txn) error {
		marked = false

		current, err := loadRecord(txn, id)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if current.SyncState != models.SyncStateDirty || current.LastModified > ackedLastModified {
			return nil
		}

		if current.Tombstone {
			err = s.purge(txn, current)
		} else {
			clean := *current
			clean.SyncState = models.SyncStateClean
			err = s.writeRecord(txn, current, clean)
		}
		if err != nil {
			return err
		}

		marked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark record clean (id=%s): %w", id, err)
	}

	return marked, nil
}

func (s *badgerLocalStore) ApplyRemote(ctx context.Context, remote models.Record, resolver Resolver) (models.MergeOutcome, error) {
	results, err := s.ApplyRemotePage(ctx, []models.Record{remote}, "", resolver)
	if err != nil {
		return "", err
	}

	return results[0].Outcome, nil
}

func (s *badgerLocalStore) ApplyRemotePage(ctx context.Context, records []models.Record, next models.Cursor, resolver Resolver) ([]models.MergeResult, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}

	var results []models.MergeResult
	err := s.update(ctx, "badgerLocalStore.ApplyRemotePage", func(txn *badger.Txn) error {
		results = make([]models.MergeResult, 0, len(records))

		for _, remote := range records {
			outcome, err := s.mergeOne(txn, remote, resolver)
			if err != nil {
				return fmt.Errorf("failed to merge record (id=%s): %w", remote.ID, err)
			}
			results = append(results, models.MergeResult{ID: remote.ID, Outcome: outcome})
		}

		if next != "" {
			if err := txn.Set(cursorKey, []byte(next)); err != nil {
				return err
			}
		}

		return s.persistClock(txn)
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "badgerLocalStore.ApplyRemotePage").
			Int("records", len(records)).
			Msg("failed to merge remote page")
		return nil, err
	}

	return results, nil
}

func (s *badgerLocalStore) mergeOne(txn *badger.Txn, remote models.Record, resolver Resolver) (models.MergeOutcome, error) {
	local, err := loadRecord(txn, remote.ID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return "", err
	}

	s.clock.Observe(remote.LastModified)

	outcome := resolver.Resolve(local, remote)
	action, err := planMerge(local, outcome)
	if err != nil {
		return "", err
	}

	switch action {
	case actionWriteClean:
		err = s.writeRecord(txn, local, cleanCopy(remote))
	case actionPurge:
		err = s.purge(txn, local)
	case actionMarkConflicted:
		conflicted := *local
		conflicted.SyncState = models.SyncStateConflicted
		err = s.writeRecord(txn, local, conflicted)
	case actionMarkClean:
		clean := *local
		clean.SyncState = models.SyncStateClean
		err = s.writeRecord(txn, local, clean)
	}
	if err != nil {
		return "", err
	}

	return outcome, nil
}

func (s *badgerLocalStore) KeepLocal(ctx context.Context, id string) (models.Record, error) {
	var rec models.Record
	err := s.update(ctx, "badgerLocalStore.KeepLocal", func(txn *badger.Txn) error {
		current, err := loadRecord(txn, id)
		if err != nil {
			return err
		}
		if current.SyncState != models.SyncStateConflicted {
			return ErrRecordNotConflicted
		}

		rec = *current
		rec.LastModified = s.clock.Next()
		rec.SyncState = models.SyncStateDirty
		return s.writeRecord(txn, current, rec)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to keep local record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *badgerLocalStore) AcceptRemoteDeletion(ctx context.Context, id string) error {
	err := s.update(ctx, "badgerLocalStore.AcceptRemoteDeletion", func(txn *badger.Txn) error {
		current, err := loadRecord(txn, id)
		if err != nil {
			return err
		}
		if current.SyncState != models.SyncStateConflicted {
			return ErrRecordNotConflicted
		}
		return s.purge(txn, current)
	})
	if err != nil {
		return fmt.Errorf("failed to accept remote deletion (id=%s): %w", id, err)
	}

	return nil
}

func (s *badgerLocalStore) Cursor(ctx context.Context) (models.Cursor, error) {
	var cursor models.Cursor
	err := s.db.View(func(txn *badger.Txn) error {
		raw, err := getValue(txn, cursorKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		cursor = models.Cursor(raw)
		return err
	})

	return cursor, err
}

func (s *badgerLocalStore) SetCursor(ctx context.Context, cursor models.Cursor) error {
	return s.update(ctx, "badgerLocalStore.SetCursor", func(txn *badger.Txn) error {
		return txn.Set(cursorKey, []byte(cursor))
	})
}

func (s *badgerLocalStore) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on optimistic
// transaction conflicts.
func (s *badgerLocalStore) update(ctx context.Context, funcName string, fn func(txn *badger.Txn) error) error {
	if s.db.IsClosed() {
		return ErrStoreClosed
	}

	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewExponential(txRetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			logger.FromContext(ctx).Warn().Err(err).Str("func", funcName).Msg("retrying transaction")
			return retry.RetryableError(err)
		}
		return err
	})
}

// writeRecord stores next and keeps the dirty index in step with the
// transition from prev (nil when the record is new).
func (s *badgerLocalStore) writeRecord(txn *badger.Txn, prev *models.Record, next models.Record) error {
	if prev != nil && prev.SyncState == models.SyncStateDirty {
		if err := txn.Delete(dirtyKey(prev.LastModified, prev.ID)); err != nil {
			return err
		}
	}

	value, err := json.Marshal(badgerRecord{
		ID:           next.ID,
		Payload:      next.Payload,
		LastModified: next.LastModified,
		SyncState:    next.SyncState,
		Tombstone:    next.Tombstone,
	})
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}

	if err := txn.Set(recordKey(next.ID), value); err != nil {
		return err
	}

	if next.SyncState == models.SyncStateDirty {
		if err := txn.Set(dirtyKey(next.LastModified, next.ID), nil); err != nil {
			return err
		}
	}

	return s.persistClock(txn)
}

func (s *badgerLocalStore) purge(txn *badger.Txn, rec *models.Record) error {
	if rec.SyncState == models.SyncStateDirty {
		if err := txn.Delete(dirtyKey(rec.LastModified, rec.ID)); err != nil {
			return err
		}
	}
	return txn.Delete(recordKey(rec.ID))
}

func (s *badgerLocalStore) persistClock(txn *badger.Txn) error {
	return txn.Set(clockKey, []byte(strconv.FormatInt(s.clock.Last(), 10)))
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recPrefix...), id...)
}

// dirtyKey zero-pads the timestamp so that byte order equals numeric order.
func dirtyKey(ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", dirtyPrefix, ts, id))
}

func idFromDirtyKey(key []byte) (string, error) {
	rest := strings.TrimPrefix(string(key), string(dirtyPrefix))
	_, id, ok := strings.Cut(rest, "/")
	if !ok {
		return "", fmt.Errorf("malformed dirty key %q", key)
	}
	return id, nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func loadRecord(txn *badger.Txn, id string) (*models.Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(item)
}

func decodeItem(item *badger.Item) (*models.Record, error) {
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	var stored badgerRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("error decoding record %q: %w", item.Key(), err)
	}

	return &models.Record{
		ID:           stored.ID,
		Payload:      stored.Payload,
		LastModified: stored.LastModified,
		SyncState:    stored.SyncState,
		Tombstone:    stored.Tombstone,
	}, nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Info().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}
