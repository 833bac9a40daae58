package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

type sqliteLocalStore struct {
	*DB
	clock  *Clock
	logger *logger.Logger
}

// NewSQLiteLocalStore opens the SQLite-backed local store at dsn.
func NewSQLiteLocalStore(ctx context.Context, dsn string, log *logger.Logger) (LocalStore, error) {
	db, err := NewConnectSQLite(ctx, dsn, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	store, err := newSQLiteLocalStore(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func newSQLiteLocalStore(ctx context.Context, db *DB, log *logger.Logger) (*sqliteLocalStore, error) {
	var maxTs int64
	if err := db.QueryRowContext(ctx, maxLastModified).Scan(&maxTs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	var clockTs int64
	var raw string
	err := db.QueryRowContext(ctx, getMeta, metaClock).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	default:
		if clockTs, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt clock value %q: %w", raw, err)
		}
	}

	return &sqliteLocalStore{
		DB:     db,
		clock:  NewClock(max(maxTs, clockTs)),
		logger: log,
	}, nil
}

func (s *sqliteLocalStore) Get(ctx context.Context, id string) (models.Record, error) {
	rec, err := scanRecord(s.QueryRowContext(ctx, getRecord, id))
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			logger.FromContext(ctx).Err(err).
				Str("func", "sqliteLocalStore.Get").
				Str("id", id).
				Msg("failed to read record")
		}
		return models.Record{}, err
	}

	return *rec, nil
}

func (s *sqliteLocalStore) List(ctx context.Context) ([]models.Record, error) {
	query, args, err := buildListLiveQuery()
	if err != nil {
		return nil, err
	}

	return s.queryRecords(ctx, "sqliteLocalStore.List", query, args...)
}

func (s *sqliteLocalStore) ListDirty(ctx context.Context, after models.DirtyKey, limit int) ([]models.Record, error) {
	query, args, err := buildListDirtyQuery(after, limit)
	if err != nil {
		return nil, err
	}

	return s.queryRecords(ctx, "sqliteLocalStore.ListDirty", query, args...)
}

func (s *sqliteLocalStore) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := s.QueryRowContext(ctx, countPending).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return n, nil
}

func (s *sqliteLocalStore) Put(ctx context.Context, id string, payload json.RawMessage) (models.Record, error) {
	var rec models.Record
	err := s.inTx(ctx, "sqliteLocalStore.Put", func(tx *sql.Tx) error {
		rec = models.Record{
			ID:           id,
			Payload:      payload,
			LastModified: s.clock.Next(),
			SyncState:    models.SyncStateDirty,
		}
		return s.writeRecord(ctx, tx, rec)
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "sqliteLocalStore.Put").
			Str("id", id).
			Msg("failed to write record")
		return models.Record{}, fmt.Errorf("failed to put record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *sqliteLocalStore) Delete(ctx context.Context, id string) (models.Record, error) {
	var rec models.Record
	err := s.inTx(ctx, "sqliteLocalStore.Delete", func(tx *sql.Tx) error {
		current, err := scanRecord(tx.QueryRowContext(ctx, getRecord, id))
		if err != nil {
			return err
		}
		if current.Tombstone {
			rec = *current
			return nil
		}

		rec = models.Record{
			ID:           current.ID,
			LastModified: s.clock.Next(),
			SyncState:    models.SyncStateDirty,
			Tombstone:    true,
		}
		return s.writeRecord(ctx, tx, rec)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to delete record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *sqliteLocalStore) MarkClean(ctx context.Context, id string, ackedLastModified int64) (bool, error) {
	marked := false
	err := s.inTx(ctx, "sqliteLocalStore.MarkClean", func(tx *sql.Tx) error {
		marked = false

		current, err := scanRecord(tx.QueryRowContext(ctx, getRecord, id))
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
			_, err = tx.ExecContext(ctx, deleteRecord, id)
		} else {
			_, err = tx.ExecContext(ctx, setSyncState, string(models.SyncStateClean), id)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		marked = true
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "sqliteLocalStore.MarkClean").
			Str("id", id).
			Msg("failed to mark record clean")
		return false, fmt.Errorf("failed to mark record clean (id=%s): %w", id, err)
	}

	return marked, nil
}

func (s *sqliteLocalStore) ApplyRemote(ctx context.Context, remote models.Record, resolver Resolver) (models.MergeOutcome, error) {
	results, err := s.ApplyRemotePage(ctx, []models.Record{remote}, "", resolver)
	if err != nil {
		return "", err
	}

	return results[0].Outcome, nil
}

func (s *sqliteLocalStore) ApplyRemotePage(ctx context.Context, records []models.Record, next models.Cursor, resolver Resolver) ([]models.MergeResult, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}

	var results []models.MergeResult
	err := s.inTx(ctx, "sqliteLocalStore.ApplyRemotePage", func(tx *sql.Tx) error {
		results = make([]models.MergeResult, 0, len(records))

		for _, remote := range records {
			outcome, err := s.mergeOne(ctx, tx, remote, resolver)
			if err != nil {
				return fmt.Errorf("failed to merge record (id=%s): %w", remote.ID, err)
			}
			results = append(results, models.MergeResult{ID: remote.ID, Outcome: outcome})
		}

		if next != "" {
			if _, err := tx.ExecContext(ctx, putMeta, metaCursor, string(next)); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		return s.persistClock(ctx, tx)
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "sqliteLocalStore.ApplyRemotePage").
			Int("records", len(records)).
			Msg("failed to merge remote page")
		return nil, err
	}

	return results, nil
}

func (s *sqliteLocalStore) mergeOne(ctx context.Context, tx *sql.Tx, remote models.Record, resolver Resolver) (models.MergeOutcome, error) {
	local, err := scanRecord(tx.QueryRowContext(ctx, getRecord, remote.ID))
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
		err = s.writeRecord(ctx, tx, cleanCopy(remote))
	case actionPurge:
		_, err = tx.ExecContext(ctx, deleteRecord, remote.ID)
	case actionMarkConflicted:
		_, err = tx.ExecContext(ctx, setSyncState, string(models.SyncStateConflicted), remote.ID)
	case actionMarkClean:
		_, err = tx.ExecContext(ctx, setSyncState, string(models.SyncStateClean), remote.ID)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return outcome, nil
}

func (s *sqliteLocalStore) KeepLocal(ctx context.Context, id string) (models.Record, error) {
	var rec models.Record
	err := s.inTx(ctx, "sqliteLocalStore.KeepLocal", func(tx *sql.Tx) error {
		current, err := scanRecord(tx.QueryRowContext(ctx, getRecord, id))
		if err != nil {
			return err
		}
		if current.SyncState != models.SyncStateConflicted {
			return ErrRecordNotConflicted
		}

		rec = *current
		rec.LastModified = s.clock.Next()
		rec.SyncState = models.SyncStateDirty
		return s.writeRecord(ctx, tx, rec)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to keep local record (id=%s): %w", id, err)
	}

	return rec, nil
}

func (s *sqliteLocalStore) AcceptRemoteDeletion(ctx context.Context, id string) error {
	err := s.inTx(ctx, "sqliteLocalStore.AcceptRemoteDeletion", func(tx *sql.Tx) error {
		current, err := scanRecord(tx.QueryRowContext(ctx, getRecord, id))
		if err != nil {
			return err
		}
		if current.SyncState != models.SyncStateConflicted {
			return ErrRecordNotConflicted
		}

		if _, err := tx.ExecContext(ctx, deleteRecord, id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to accept remote deletion (id=%s): %w", id, err)
	}

	return nil
}

func (s *sqliteLocalStore) Cursor(ctx context.Context) (models.Cursor, error) {
	var raw string
	err := s.QueryRowContext(ctx, getMeta, metaCursor).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return models.Cursor(raw), nil
}

func (s *sqliteLocalStore) SetCursor(ctx context.Context, cursor models.Cursor) error {
	if _, err := s.ExecContext(ctx, putMeta, metaCursor, string(cursor)); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteLocalStore) Close() error {
	return s.DB.Close()
}

// writeRecord upserts rec and persists the clock high-water mark.
func (s *sqliteLocalStore) writeRecord(ctx context.Context, tx *sql.Tx, rec models.Record) error {
	_, err := tx.ExecContext(ctx, upsertRecord,
		rec.ID,
		string(rec.Payload),
		rec.LastModified,
		string(rec.SyncState),
		rec.Tombstone,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return s.persistClock(ctx, tx)
}

func (s *sqliteLocalStore) persistClock(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, putMeta, metaClock, strconv.FormatInt(s.clock.Last(), 10))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteLocalStore) queryRecords(ctx context.Context, funcName, query string, args ...any) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", funcName).Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.Err(err).Str("func", funcName).Msg("failed to scan record row")
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", funcName).Msg("error iterating record rows")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one record row. A missing row yields ErrRecordNotFound.
func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec     models.Record
		payload string
		state   string
	)

	err := row.Scan(&rec.ID, &payload, &rec.LastModified, &state, &rec.Tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if payload != "" {
		rec.Payload = json.RawMessage(payload)
	}
	rec.SyncState = models.SyncState(state)

	return &rec, nil
}
