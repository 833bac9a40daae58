package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

type postgresRemoteRepository struct {
	*DB
	logger *logger.Logger
}

// NewPostgresRemoteRepository returns a RemoteRecordRepository backed by the
// remote_records table.
func NewPostgresRemoteRepository(db *DB, log *logger.Logger) RemoteRecordRepository {
	return &postgresRemoteRepository{DB: db, logger: log}
}

func (p *postgresRemoteRepository) Apply(ctx context.Context, owner string, rec models.Record) (models.Record, error) {
	rec = cleanCopy(rec)

	var result models.Record
	err := p.inTx(ctx, "postgresRemoteRepository.Apply", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockOwnerFeed, owner); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		stored, err := p.selectForUpdate(ctx, tx, owner, rec.ID)
		if err != nil {
			return err
		}

		result = rec
		switch decideRemoteWrite(stored, rec) {
		case remoteInsert:
			res, err := tx.ExecContext(ctx, insertRemote, owner, rec.ID, string(rec.Payload), rec.LastModified, rec.Tombstone)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return errConcurrentInsert
			}
		case remoteOverwrite:
			if _, err := tx.ExecContext(ctx, overwriteRemote, owner, rec.ID, string(rec.Payload), rec.LastModified, rec.Tombstone); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		case remoteReannounce:
			result = *stored
			if _, err := tx.ExecContext(ctx, touchRemote, owner, rec.ID); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		case remoteNoop:
			result = *stored
		}

		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "postgresRemoteRepository.Apply").
			Str("owner", owner).
			Str("id", rec.ID).
			Msg("failed to apply pushed record")
		return models.Record{}, fmt.Errorf("failed to apply record (id=%s): %w", rec.ID, err)
	}

	return result, nil
}

func (p *postgresRemoteRepository) selectForUpdate(ctx context.Context, tx *sql.Tx, owner, id string) (*models.Record, error) {
	stored := models.Record{ID: id, SyncState: models.SyncStateClean}
	var payload string

	err := tx.QueryRowContext(ctx, selectRemoteForUpdate, owner, id).
		Scan(&payload, &stored.LastModified, &stored.Tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if payload != "" {
		stored.Payload = []byte(payload)
	}
	return &stored, nil
}

func (p *postgresRemoteRepository) ChangesSince(ctx context.Context, owner string, afterSeq int64, limit int) ([]RemoteChange, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildChangesSinceQuery(owner, afterSeq, limit)
	if err != nil {
		return nil, err
	}

	rows, err := p.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "postgresRemoteRepository.ChangesSince").
			Str("owner", owner).
			Msg("failed to query change feed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	changes := make([]RemoteChange, 0, limit)
	for rows.Next() {
		var (
			change  RemoteChange
			payload string
		)
		if err := rows.Scan(&change.Seq, &change.Record.ID, &payload, &change.Record.LastModified, &change.Record.Tombstone); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if payload != "" {
			change.Record.Payload = []byte(payload)
		}
		change.Record.SyncState = models.SyncStateClean
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return changes, nil
}
