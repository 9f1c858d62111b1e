package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

var errResultPending = errors.New("transport: previous result not awaited")

// PgxOpener opens connections with pgconn, the low level PostgreSQL protocol
// layer of pgx.
type PgxOpener struct {
	config *pgconn.Config
}

// NewPgxOpener parses connString (keyword/value or URL form) once.
func NewPgxOpener(connString string) (*PgxOpener, error) {
	cfg, err := pgconn.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	return &PgxOpener{config: cfg}, nil
}

// Open establishes a new physical connection.
func (o *PgxOpener) Open(ctx context.Context) (Conn, error) {
	pc, err := pgconn.ConnectConfig(ctx, o.config)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: pc, types: pgtype.NewMap()}, nil
}

// pgxConn drives one pgconn session. Extended protocol requests are flushed
// on send and their rows are read on AwaitResult.
type pgxConn struct {
	conn  *pgconn.PgConn
	types *pgtype.Map

	rr  *pgconn.ResultReader
	mrr *pgconn.MultiResultReader
}

func (c *pgxConn) Prepare(ctx context.Context, name, sql string) error {
	if c.pending() {
		return errResultPending
	}
	_, err := c.conn.Prepare(ctx, name, sql, nil)
	return err
}

func (c *pgxConn) SendPrepared(ctx context.Context, name string, args []param.Arg) error {
	if c.pending() {
		return errResultPending
	}
	values, err := encodeArgs(c.types, args)
	if err != nil {
		return err
	}
	c.rr = c.conn.ExecPrepared(ctx, name, values, nil, nil)
	return nil
}

func (c *pgxConn) SendQueryParams(ctx context.Context, sql string, args []param.Arg) error {
	if c.pending() {
		return errResultPending
	}
	values, err := encodeArgs(c.types, args)
	if err != nil {
		return err
	}
	c.rr = c.conn.ExecParams(ctx, sql, values, nil, nil, nil)
	return nil
}

func (c *pgxConn) SendQuery(ctx context.Context, sql string) error {
	if c.pending() {
		return errResultPending
	}
	c.mrr = c.conn.Exec(ctx, sql)
	return nil
}

func (c *pgxConn) AwaitResult(ctx context.Context) (*Result, error) {
	switch {
	case c.rr != nil:
		rr := c.rr
		c.rr = nil
		return serverResult(c.readResult(rr))
	case c.mrr != nil:
		mrr := c.mrr
		c.mrr = nil
		var last *Result
		for mrr.NextResult() {
			last = c.readResult(mrr.ResultReader())
		}
		if err := mrr.Close(); err != nil {
			if last == nil {
				last = &Result{}
			}
			last.Err = err
		}
		if last == nil {
			return nil, nil
		}
		return serverResult(last)
	}
	return nil, nil
}

func (c *pgxConn) Exec(ctx context.Context, sql string) (int64, error) {
	if c.pending() {
		return 0, errResultPending
	}
	results, err := c.conn.Exec(ctx, sql).ReadAll()
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	last := results[len(results)-1]
	return last.CommandTag.RowsAffected(), last.Err
}

func (c *pgxConn) IsBusy() bool {
	return c.pending() || c.conn.IsBusy()
}

func (c *pgxConn) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func (c *pgxConn) pending() bool {
	return c.rr != nil || c.mrr != nil
}

func (c *pgxConn) readResult(rr *pgconn.ResultReader) *Result {
	res := &Result{}
	fields := rr.FieldDescriptions()
	res.Columns = columnNames(fields)

	for rr.NextRow() {
		if fields == nil {
			fields = rr.FieldDescriptions()
			res.Columns = columnNames(fields)
		}
		res.Rows = append(res.Rows, decodeRow(c.types, fields, rr.Values()))
	}

	tag, err := rr.Close()
	res.RowsAffected = tag.RowsAffected()
	res.Err = err
	return res
}

// serverResult keeps server diagnostics on the Result and surfaces every other
// failure (I/O, protocol) as an error.
func serverResult(res *Result) (*Result, error) {
	if res.Err == nil {
		return res, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(res.Err, &pgErr) {
		return res, nil
	}
	return nil, res.Err
}

func columnNames(fields []pgconn.FieldDescription) []string {
	if fields == nil {
		return nil
	}
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	return names
}
