// Package mock is a scriptable in-memory stand-in for a PostgreSQL server.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/transport"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrClosed  = errors.New("mock: connection closed")
	ErrPending = errors.New("mock: previous result not awaited")
)

type CallKind string

const (
	CallPrepare         CallKind = "prepare"
	CallSendPrepared    CallKind = "send_prepared"
	CallSendQueryParams CallKind = "send_query_params"
	CallSendQuery       CallKind = "send_query"
	CallExec            CallKind = "exec"
)

// Call is one request received by the server. For CallSendPrepared, SQL holds
// the text registered under Name.
type Call struct {
	Kind   CallKind
	ConnID int
	Name   string
	SQL    string
	Args   []param.Arg
}

// Handler produces the reply to a call. A nil Result with a nil error means
// the server produced no result. A non-nil error is a transport failure;
// server diagnostics belong in Result.Err.
type Handler func(call Call) (*transport.Result, error)

// Server hands out Conns sharing one Handler and records every call.
type Server struct {
	mu      sync.Mutex
	handler Handler
	openErr error
	conns   []*Conn
	calls   []Call
}

// NewServer returns a server answering with h. A nil h answers every request
// with an empty result.
func NewServer(h Handler) *Server {
	return &Server{handler: h}
}

// Open implements transport.Opener.
func (s *Server) Open(ctx context.Context) (transport.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	c := &Conn{server: s, id: len(s.conns) + 1, prepared: make(map[string]string)}
	s.conns = append(s.conns, c)
	return c, nil
}

// FailOpen makes every following Open fail with err; nil restores it.
func (s *Server) FailOpen(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

// SetHandler replaces the handler.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Calls returns a copy of every recorded call, optionally filtered by kind.
func (s *Server) Calls(kinds ...CallKind) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if len(kinds) == 0 || containsKind(kinds, c.Kind) {
			out = append(out, c)
		}
	}
	return out
}

// Conns returns every connection opened so far, in open order.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Conn(nil), s.conns...)
}

// Opened is the number of successful Opens.
func (s *Server) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) record(c Call) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	return s.handler
}

func (s *Server) currentHandler() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

func containsKind(kinds []CallKind, k CallKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

type pendingCall struct {
	call Call
	diag error
}

// Conn is one fake server session.
type Conn struct {
	server *Server
	id     int

	mu       sync.Mutex
	pending  *pendingCall
	busy     bool
	closed   bool
	prepared map[string]string
}

func (c *Conn) ID() int { return c.id }

// SetBusy forces IsBusy to report true, as if another request were running.
func (c *Conn) SetBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}

// Prepared reports whether name was prepared on this session.
func (c *Conn) Prepared(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.prepared[name]
	return ok
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Prepare(ctx context.Context, name, sql string) error {
	c.mu.Lock()
	if err := c.check(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	call := Call{Kind: CallPrepare, ConnID: c.id, Name: name, SQL: sql}
	res, err := reply(c.server.record(call), call)
	if err != nil {
		return err
	}
	if res != nil && res.Err != nil {
		return res.Err
	}

	c.mu.Lock()
	c.prepared[name] = sql
	c.mu.Unlock()
	return nil
}

func (c *Conn) SendPrepared(ctx context.Context, name string, args []param.Arg) error {
	c.mu.Lock()
	sql, ok := c.prepared[name]
	c.mu.Unlock()
	call := Call{Kind: CallSendPrepared, ConnID: c.id, Name: name, SQL: sql, Args: args}
	if !ok {
		return c.send(call, &pgconn.PgError{
			Severity: "ERROR",
			Code:     "26000",
			Message:  fmt.Sprintf("prepared statement %q does not exist", name),
		})
	}
	return c.send(call, nil)
}

func (c *Conn) SendQueryParams(ctx context.Context, sql string, args []param.Arg) error {
	return c.send(Call{Kind: CallSendQueryParams, ConnID: c.id, SQL: sql, Args: args}, nil)
}

func (c *Conn) SendQuery(ctx context.Context, sql string) error {
	return c.send(Call{Kind: CallSendQuery, ConnID: c.id, SQL: sql}, nil)
}

// send records call and parks it until AwaitResult. A non-nil diag is returned instead of
// asking the handler, the way the server rejects a request it cannot bind.
func (c *Conn) send(call Call, diag error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	c.server.record(call)
	c.pending = &pendingCall{call: call, diag: diag}
	return nil
}

func (c *Conn) AwaitResult(ctx context.Context) (*transport.Result, error) {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	closed := c.closed
	c.mu.Unlock()

	if p == nil {
		return nil, nil
	}
	if closed {
		return nil, ErrClosed
	}
	if p.diag != nil {
		return &transport.Result{Err: p.diag}, nil
	}
	return reply(c.server.currentHandler(), p.call)
}

func (c *Conn) Exec(ctx context.Context, sql string) (int64, error) {
	c.mu.Lock()
	if err := c.check(); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.mu.Unlock()

	call := Call{Kind: CallExec, ConnID: c.id, SQL: sql}
	res, err := reply(c.server.record(call), call)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	return res.RowsAffected, res.Err
}

func (c *Conn) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy || c.pending != nil
}

func (c *Conn) IsClosed() bool {
	return c.Closed()
}

func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = nil
	return nil
}

// check requires c.mu.
func (c *Conn) check() error {
	if c.closed {
		return ErrClosed
	}
	if c.pending != nil {
		return ErrPending
	}
	return nil
}

func reply(h Handler, call Call) (*transport.Result, error) {
	if h == nil {
		return &transport.Result{}, nil
	}
	return h(call)
}

// Rows builds a result set reply.
func Rows(columns []string, rows ...[]any) *transport.Result {
	return &transport.Result{Columns: columns, Rows: rows, RowsAffected: int64(len(rows))}
}

// Affected builds a reply for a statement that changed n rows.
func Affected(n int64) *transport.Result {
	return &transport.Result{RowsAffected: n}
}

// Fail builds a reply carrying a server diagnostic.
func Fail(code, message string) *transport.Result {
	return &transport.Result{Err: &pgconn.PgError{Severity: "ERROR", Code: code, Message: message}}
}
