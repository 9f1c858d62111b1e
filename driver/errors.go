package driver

import (
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

var (
	ErrAlreadyExecuted   = errors.New("driver: statement already executed")
	ErrNotExecuted       = errors.New("driver: statement not executed")
	ErrQueryFailed       = errors.New("driver: query failed")
	ErrEmptyResult       = errors.New("driver: server returned no result")
	ErrNotFound          = errors.New("driver: no rows found")
	ErrTransactionActive = errors.New("driver: transaction already active")
	ErrNoTransaction     = errors.New("driver: no active transaction")

	ErrInvalidParameterStyle  = param.ErrInvalidParameterStyle
	ErrUnsupportedBindingKind = dialect.ErrUnsupportedBindingKind
)

// QueryError is a statement the server rejected or a transport failure after
// the statement left the client.
type QueryError struct {
	SQL      string
	SQLState string
	Err      error
}

func newQueryError(sql string, err error) *QueryError {
	return &QueryError{SQL: sql, SQLState: transport.SQLState(err), Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("driver: query failed: %v (sql: %s)", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// EmptyResultError means the transport produced no result object at all.
type EmptyResultError struct {
	SQL string
}

func (e *EmptyResultError) Error() string {
	return "driver: server returned no result (sql: " + e.SQL + ")"
}

func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}

// NotFoundError means a SELECT statement returned zero rows.
type NotFoundError struct {
	SQL string
}

func (e *NotFoundError) Error() string {
	return "driver: no rows found (sql: " + e.SQL + ")"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
