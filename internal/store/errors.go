package store

import "errors"

// Sentinel errors returned by store methods. Callers should use [errors.Is]
// to match against these values.
var (
	// ErrRecordNotFound is returned when no record exists for the requested id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordNotConflicted is returned when a conflict resolution is
	// requested for a record that is not in the Conflicted state.
	ErrRecordNotConflicted = errors.New("record is not conflicted")

	// ErrUnknownDriver is returned by NewLocalStore for an unsupported driver
	// name.
	ErrUnknownDriver = errors.New("unknown local store driver")

	// ErrNilResolver is returned when a merge is attempted without a resolver.
	ErrNilResolver = errors.New("resolver is nil")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// errConcurrentInsert signals that another writer created the same row
	// between our read and our insert. It is always retried.
	errConcurrentInsert = errors.New("concurrent insert detected")
)

// Low-level database operation errors. These are wrapped by store methods
// when a SQL-level operation fails before any domain logic can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the driver cannot start a
	// transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing a transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning a result row fails.
	ErrScanningRow = errors.New("failed to scan record row")
)
