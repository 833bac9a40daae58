package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-offline-sync/models"
)

const recordsTable = "records"

var recordColumns = []string{"id", "payload", "last_modified", "sync_state", "tombstone"}

// local store builders use '?' placeholders (SQLite)
var sqlite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// remote store builders use '$n' placeholders (PostgreSQL)
var postgres = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	getRecord = `SELECT id, payload, last_modified, sync_state, tombstone FROM records WHERE id = ?`

	upsertRecord = `
		INSERT INTO records (id, payload, last_modified, sync_state, tombstone)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			last_modified = excluded.last_modified,
			sync_state = excluded.sync_state,
			tombstone = excluded.tombstone`

	deleteRecord = `DELETE FROM records WHERE id = ?`

	setSyncState = `UPDATE records SET sync_state = ? WHERE id = ?`

	getMeta = `SELECT value FROM sync_meta WHERE key = ?`

	putMeta = `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`

	maxLastModified = `SELECT COALESCE(MAX(last_modified), 0) FROM records`

	countPending = `SELECT COUNT(*) FROM records WHERE sync_state IN ('dirty', 'conflicted')`
)

const (
	metaCursor = "cursor"
	metaClock  = "clock"
)

// buildListDirtyQuery selects Dirty records strictly after the keyset
// position, in (last_modified, id) order.
func buildListDirtyQuery(after models.DirtyKey, limit int) (string, []any, error) {
	if limit <= 0 {
		return "", nil, fmt.Errorf("%w: limit must be positive", ErrBuildingSQLQuery)
	}

	query, args, err := sqlite.
		Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"sync_state": string(models.SyncStateDirty)}).
		Where(sq.Or{
			sq.Gt{"last_modified": after.LastModified},
			sq.And{
				sq.Eq{"last_modified": after.LastModified},
				sq.Gt{"id": after.ID},
			},
		}).
		OrderBy("last_modified", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildListLiveQuery selects every non-tombstoned record.
func buildListLiveQuery() (string, []any, error) {
	query, args, err := sqlite.
		Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"tombstone": false}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildChangesSinceQuery selects the owner's change feed after afterSeq.
func buildChangesSinceQuery(owner string, afterSeq int64, limit int) (string, []any, error) {
	if limit <= 0 {
		return "", nil, fmt.Errorf("%w: limit must be positive", ErrBuildingSQLQuery)
	}

	query, args, err := postgres.
		Select("seq", "record_id", "payload", "last_modified", "tombstone").
		From("remote_records").
		Where(sq.Eq{"owner": owner}).
		Where(sq.Gt{"seq": afterSeq}).
		OrderBy("seq").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

const (
	// lockOwnerFeed serializes writers of one owner until commit, so seq
	// values of that owner become visible in the order they were drawn.
	lockOwnerFeed = `SELECT pg_advisory_xact_lock(hashtext($1))`

	selectRemoteForUpdate = `
		SELECT payload, last_modified, tombstone
		FROM remote_records
		WHERE owner = $1 AND record_id = $2
		FOR UPDATE`

	insertRemote = `
		INSERT INTO remote_records (owner, record_id, payload, last_modified, tombstone)
		VALUES ($1, $2, $3, $4, $5)`

	overwriteRemote = `
		UPDATE remote_records
		SET payload = $3, last_modified = $4, tombstone = $5, seq = nextval('remote_records_seq')
		WHERE owner = $1 AND record_id = $2`

	touchRemote = `
		UPDATE remote_records
		SET seq = nextval('remote_records_seq')
		WHERE owner = $1 AND record_id = $2`
)
