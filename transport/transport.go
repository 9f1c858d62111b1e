// Package transport is the boundary to one physical server session.
//
// A Conn speaks a strict request/response protocol: every Send* call must be
// followed by exactly one AwaitResult before the next request is sent.
package transport

import (
	"context"
	"errors"

	"github.com/Konsultn-Engineering/pgswarm/param"
)

// Conn is one physical server session.
type Conn interface {
	// Prepare registers sql under name on the server and waits for the reply.
	Prepare(ctx context.Context, name, sql string) error
	// SendPrepared sends an execute-by-name request without waiting.
	SendPrepared(ctx context.Context, name string, args []param.Arg) error
	// SendQueryParams sends sql with inline parameters without waiting.
	SendQueryParams(ctx context.Context, sql string, args []param.Arg) error
	// SendQuery sends sql without parameters without waiting.
	SendQuery(ctx context.Context, sql string) error
	// AwaitResult blocks until the pending request completes. A nil Result
	// with a nil error means the server produced no result at all.
	AwaitResult(ctx context.Context) (*Result, error)
	// Exec runs sql synchronously and returns the affected row count
	// without materialising a result set.
	Exec(ctx context.Context, sql string) (int64, error)
	IsBusy() bool
	IsClosed() bool
	Close(ctx context.Context) error
}

// Opener opens physical connections to one server.
type Opener interface {
	Open(ctx context.Context) (Conn, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Conn, error)

func (f OpenerFunc) Open(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Result is a fully received statement result.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	// Err is the diagnostic reported by the server, if any.
	Err error
}

// SQLState extracts the SQLSTATE code from a server diagnostic.
func SQLState(err error) string {
	var s interface{ SQLState() string }
	if errors.As(err, &s) {
		return s.SQLState()
	}
	return ""
}
