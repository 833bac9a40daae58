package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

var remoteRowColumns = []string{"payload", "last_modified", "tombstone"}

func newTestRemoteRepo(t *testing.T) (RemoteRecordRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := NewPostgresRemoteRepository(&DB{
		DB:                 db,
		errorClassificator: NewPostgresErrorClassifier(),
		logger:             l,
	}, l)
	return repo, mock, db
}

func expectOwnerLock(mock sqlmock.Sqlmock, owner string) {
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs(owner).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestPostgresRemoteRepository_ApplyInsert(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	rec := models.Record{ID: "42", Payload: json.RawMessage(`{"v":1}`), LastModified: 100}

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns))
	mock.ExpectExec("INSERT INTO remote_records").
		WithArgs("alice", "42", `{"v":1}`, int64(100), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Apply(context.Background(), "alice", rec)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.LastModified)
	assert.Equal(t, models.SyncStateClean, got.SyncState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyOverwrite(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns).AddRow(`{"v":1}`, int64(100), false))
	mock.ExpectExec("SET payload").
		WithArgs("alice", "42", "", int64(200), true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Apply(context.Background(), "alice", models.Record{ID: "42", Payload: json.RawMessage(`{"x":1}`), Tombstone: true, LastModified: 200})
	require.NoError(t, err)
	assert.True(t, got.Tombstone)
	assert.Nil(t, got.Payload)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyStaleReannounces(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns).AddRow(`{"v":2}`, int64(200), false))
	mock.ExpectExec("SET seq").
		WithArgs("alice", "42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Apply(context.Background(), "alice", models.Record{ID: "42", Payload: json.RawMessage(`{"v":1}`), LastModified: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.LastModified)
	assert.JSONEq(t, `{"v":2}`, string(got.Payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyDuplicateIsNoop(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns).AddRow(`{"v":1}`, int64(100), false))
	mock.ExpectCommit()

	_, err := repo.Apply(context.Background(), "alice", models.Record{ID: "42", Payload: json.RawMessage(`{"v":1}`), LastModified: 100})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyRetriesConcurrentInsert(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns))
	mock.ExpectExec("INSERT INTO remote_records").
		WillReturnError(pgError(pgerrcode.UniqueViolation))
	mock.ExpectRollback()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WithArgs("alice", "42").
		WillReturnRows(sqlmock.NewRows(remoteRowColumns).AddRow(`{"v":1}`, int64(100), false))
	mock.ExpectCommit()

	_, err := repo.Apply(context.Background(), "alice", models.Record{ID: "42", Payload: json.RawMessage(`{"v":1}`), LastModified: 100})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyNonRetryableError(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	expectOwnerLock(mock, "alice")
	mock.ExpectQuery("SELECT payload, last_modified, tombstone").
		WillReturnError(errors.New("db network error"))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), "alice", models.Record{ID: "42", LastModified: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutingQuery)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ApplyLocksOwnerFeedFirst(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	// the per-owner lock must be taken before the row is read or a seq drawn
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("bob").
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), "bob", models.Record{ID: "7", Payload: json.RawMessage(`{}`), LastModified: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutingStatement)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ChangesSince(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"seq", "record_id", "payload", "last_modified", "tombstone"}).
		AddRow(int64(5), "a", `{"n":1}`, int64(10), false).
		AddRow(int64(6), "b", "", int64(11), true)

	mock.ExpectQuery("SELECT seq, record_id, payload, last_modified, tombstone FROM remote_records").
		WithArgs("alice", int64(4)).
		WillReturnRows(rows)

	changes, err := repo.ChangesSince(context.Background(), "alice", 4, 2)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, int64(5), changes[0].Seq)
	assert.JSONEq(t, `{"n":1}`, string(changes[0].Record.Payload))
	assert.True(t, changes[1].Record.Tombstone)
	assert.Nil(t, changes[1].Record.Payload)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoteRepository_ChangesSinceQueryError(t *testing.T) {
	repo, mock, db := newTestRemoteRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT seq").WillReturnError(errors.New("boom"))

	_, err := repo.ChangesSince(context.Background(), "alice", 0, 10)
	assert.ErrorIs(t, err, ErrExecutingQuery)
}

func TestPostgresErrorClassifier(t *testing.T) {
	c := NewPostgresErrorClassifier()

	assert.Equal(t, Retryable, c.Classify(pgError(pgerrcode.SerializationFailure)))
	assert.Equal(t, Retryable, c.Classify(pgError(pgerrcode.UniqueViolation)))
	assert.Equal(t, NonRetryable, c.Classify(pgError(pgerrcode.SyntaxError)))
	assert.Equal(t, NonRetryable, c.Classify(errors.New("plain")))
	assert.Equal(t, NonRetryable, c.Classify(nil))
}
