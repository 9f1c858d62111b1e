package driver

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"unicode"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/pool"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

type State uint8

const (
	Created State = iota
	Sent
	AwaitingResult
	Completed
	Freed
)

var stateNames = [...]string{"created", "sent", "awaiting_result", "completed", "freed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// Statement is a one-shot statement bound to a leased connection. It moves
// through Created, Sent, AwaitingResult, Completed and Freed, never back.
// The first fetch blocks until the server answers. A Statement is not safe
// for concurrent use.
type Statement struct {
	conn *Conn
	pc   *pool.Conn
	sql  string
	name string

	state      State
	positional map[int]param.Arg
	named      map[string]param.Arg

	result *transport.Result
	cursor int
}

func (st *Statement) SQL() string { return st.sql }

func (st *Statement) State() State { return st.state }

// ConnID identifies the physical connection the statement runs on.
func (st *Statement) ConnID() uint64 { return st.pc.ID() }

// Prepared reports whether the statement executes by server-side name.
func (st *Statement) Prepared() bool { return st.name != "" }

// Bind records the value for the 1-based position pos. The last value bound
// to a position wins.
func (st *Statement) Bind(pos int, value any, kind param.Kind) error {
	if st.state != Created {
		return ErrAlreadyExecuted
	}
	if len(st.named) > 0 {
		return ErrInvalidParameterStyle
	}
	if pos < 1 {
		return fmt.Errorf("driver: bind position %d out of range", pos)
	}
	if st.positional == nil {
		st.positional = make(map[int]param.Arg)
	}
	st.positional[pos] = param.Arg{Value: value, Kind: kind}
	return nil
}

// BindNamed records the value for name, with or without its leading colon.
func (st *Statement) BindNamed(name string, value any, kind param.Kind) error {
	if st.state != Created {
		return ErrAlreadyExecuted
	}
	if len(st.positional) > 0 {
		return ErrInvalidParameterStyle
	}
	if st.named == nil {
		st.named = make(map[string]param.Arg)
	}
	st.named[strings.TrimPrefix(name, ":")] = param.Arg{Value: value, Kind: kind}
	return nil
}

// Execute sends the statement. With no args the bound values are used,
// positional ones by ascending position and named ones sorted by name. The
// call returns once the request is on the wire; the result is read by the
// first fetch.
func (st *Statement) Execute(ctx context.Context, args ...param.Arg) error {
	if st.state != Created {
		return ErrAlreadyExecuted
	}
	if len(args) == 0 {
		args = st.drainBound()
	}

	tc := st.pc.Transport()
	var err error
	switch {
	case st.name != "":
		err = tc.SendPrepared(ctx, st.name, args)
	case len(args) > 0:
		err = tc.SendQueryParams(ctx, st.sql, args)
	default:
		err = tc.SendQuery(ctx, st.sql)
	}
	if err != nil {
		st.Free(true)
		return newQueryError(st.sql, err)
	}
	st.state = Sent
	return nil
}

func (st *Statement) drainBound() []param.Arg {
	var args []param.Arg
	switch {
	case len(st.positional) > 0:
		keys := make([]int, 0, len(st.positional))
		for k := range st.positional {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			args = append(args, st.positional[k])
		}
	case len(st.named) > 0:
		keys := make([]string, 0, len(st.named))
		for k := range st.named {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, st.named[k])
		}
	}
	st.positional, st.named = nil, nil
	return args
}

// await reads the pending result once. Every failure frees the statement
// and closes its connection.
func (st *Statement) await(ctx context.Context) error {
	switch st.state {
	case Created:
		return ErrNotExecuted
	case Completed, Freed:
		return nil
	}

	st.state = AwaitingResult
	res, err := st.pc.Transport().AwaitResult(ctx)
	st.state = Completed

	switch {
	case err != nil:
		st.Free(true)
		return newQueryError(st.sql, err)
	case res == nil:
		st.Free(true)
		return &EmptyResultError{SQL: st.sql}
	case res.Err != nil:
		st.Free(true)
		return newQueryError(st.sql, res.Err)
	case len(res.Rows) == 0 && isRead(st.sql):
		st.Free(true)
		return &NotFoundError{SQL: st.sql}
	}
	st.result = res
	return nil
}

// next returns the row under the cursor. Past the last row the statement is
// freed and ok is false.
func (st *Statement) next(ctx context.Context) ([]any, bool, error) {
	if err := st.await(ctx); err != nil {
		return nil, false, err
	}
	if st.state == Freed {
		return nil, false, nil
	}
	if st.cursor >= len(st.result.Rows) {
		st.Free(false)
		return nil, false, nil
	}
	row := st.result.Rows[st.cursor]
	st.cursor++
	return row, true, nil
}

// remaining returns the rows not yet fetched and frees the statement.
func (st *Statement) remaining(ctx context.Context) ([]string, [][]any, error) {
	if err := st.await(ctx); err != nil {
		return nil, nil, err
	}
	if st.state == Freed {
		return nil, nil, nil
	}
	cols, rows := st.result.Columns, st.result.Rows[st.cursor:]
	st.Free(false)
	return cols, rows, nil
}

func (st *Statement) FetchNumeric(ctx context.Context) ([]any, bool, error) {
	return st.next(ctx)
}

func (st *Statement) FetchAssociative(ctx context.Context) (map[string]any, bool, error) {
	row, ok, err := st.next(ctx)
	if !ok {
		return nil, false, err
	}
	return assoc(st.result.Columns, row), true, nil
}

// FetchOne returns the first column of the next row and frees the statement.
func (st *Statement) FetchOne(ctx context.Context) (any, error) {
	_, rows, err := st.remaining(ctx)
	if err != nil || len(rows) == 0 || len(rows[0]) == 0 {
		return nil, err
	}
	return rows[0][0], nil
}

func (st *Statement) FetchAllNumeric(ctx context.Context) ([][]any, error) {
	_, rows, err := st.remaining(ctx)
	return rows, err
}

func (st *Statement) FetchAllAssociative(ctx context.Context) ([]map[string]any, error) {
	cols, rows, err := st.remaining(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = assoc(cols, row)
	}
	return out, nil
}

func (st *Statement) FetchFirstColumn(ctx context.Context) ([]any, error) {
	_, rows, err := st.remaining(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			out = append(out, row[0])
		}
	}
	return out, nil
}

// RowCount returns the rows returned or affected, then frees the statement.
func (st *Statement) RowCount(ctx context.Context) (int64, error) {
	if err := st.await(ctx); err != nil {
		return 0, err
	}
	if st.state == Freed {
		return 0, nil
	}
	n := st.result.RowsAffected
	if n == 0 {
		n = int64(len(st.result.Rows))
	}
	st.Free(false)
	return n, nil
}

// ColumnCount reports the number of result columns. It does not free.
func (st *Statement) ColumnCount(ctx context.Context) (int, error) {
	cols, err := st.Columns(ctx)
	return len(cols), err
}

func (st *Statement) Columns(ctx context.Context) ([]string, error) {
	if err := st.await(ctx); err != nil {
		return nil, err
	}
	if st.state == Freed {
		return nil, nil
	}
	return st.result.Columns, nil
}

// Iterate yields the remaining rows keyed by column name. Stopping early
// frees the statement.
func (st *Statement) Iterate(ctx context.Context) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for {
			row, ok, err := st.FetchAssociative(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				st.Free(false)
				return
			}
		}
	}
}

func (st *Statement) IterateNumeric(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for {
			row, ok, err := st.FetchNumeric(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				st.Free(false)
				return
			}
		}
	}
}

// Free releases the result and returns the connection to the pool. It is
// idempotent. A statement sent but never read has its result drained and
// its connection closed.
func (st *Statement) Free(forceClose bool) {
	if st.state == Freed {
		return
	}
	if st.state == Sent {
		_, _ = st.pc.Transport().AwaitResult(context.Background())
		forceClose = true
	}
	st.state = Freed
	st.result = nil
	st.cursor = 0
	st.positional, st.named = nil, nil
	st.conn.release(st.pc, forceClose)
}

func (st *Statement) Close() {
	st.Free(false)
}

func assoc(cols []string, row []any) map[string]any {
	m := make(map[string]any, len(row))
	for i, v := range row {
		if i < len(cols) {
			m[cols[i]] = v
		}
	}
	return m
}

// isRead reports whether sql starts with SELECT, ignoring case and leading
// whitespace.
func isRead(sql string) bool {
	s := strings.TrimLeftFunc(sql, unicode.IsSpace)
	return len(s) >= 6 && strings.EqualFold(s[:6], "select")
}
