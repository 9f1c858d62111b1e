package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/pgswarm/driver"
	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/sqlparser"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type Session struct {
	id     ulid.ULID
	engine *Engine
	conn   *driver.Conn
	log    zerolog.Logger
}

func (s *Session) ID() string {
	return s.id.String()
}

// ExecuteQuery rewrites list parameters, converts typed values and sends the
// statement. The returned statement is the row source; its first fetch waits
// for the server. Errors raised before sending never touch a connection.
func (s *Session) ExecuteQuery(ctx context.Context, sql string, params param.Params) (*driver.Statement, error) {
	start := time.Now()

	rw, err := s.engine.rewriter.Rewrite(sql, params)
	if err != nil {
		return nil, err
	}
	args, err := s.convert(rw)
	if err != nil {
		return nil, fmt.Errorf("%w (sql: %s)", err, rw.SQL)
	}

	st, err := s.conn.Prepare(ctx, rw.SQL)
	if err != nil {
		s.logFailure(rw.SQL, start, err)
		return nil, err
	}
	for i, a := range args {
		if err := st.Bind(i+1, a.Value, a.Kind); err != nil {
			st.Free(false)
			return nil, err
		}
	}
	if err := st.Execute(ctx); err != nil {
		s.logFailure(rw.SQL, start, err)
		return nil, err
	}

	s.log.Debug().
		Str("sql", rw.SQL).
		Int("params", len(args)).
		Uint64("conn_id", st.ConnID()).
		Bool("prepared", st.Prepared()).
		Dur("elapsed", time.Since(start)).
		Msg("query sent")
	return st, nil
}

// ExecuteStatement runs sql to completion and returns the affected row
// count. Without parameters the count comes straight from the server's
// command tag.
func (s *Session) ExecuteStatement(ctx context.Context, sql string, params param.Params) (int64, error) {
	start := time.Now()

	if params.Empty() {
		n, err := s.conn.Exec(ctx, sql)
		if err != nil {
			s.logFailure(sql, start, err)
			return 0, err
		}
		s.logDone(sql, start, n)
		return n, nil
	}

	st, err := s.ExecuteQuery(ctx, sql, params)
	if err != nil {
		return 0, err
	}
	n, err := st.RowCount(ctx)
	if err != nil {
		s.logFailure(st.SQL(), start, err)
		return 0, err
	}
	s.logDone(st.SQL(), start, n)
	return n, nil
}

func (s *Session) convert(rw sqlparser.Result) ([]param.Arg, error) {
	args := make([]param.Arg, len(rw.Values))
	for i, v := range rw.Values {
		var t param.Type
		if i < len(rw.Types) {
			t = rw.Types[i]
		}
		if t.IsZero() {
			args[i] = param.Arg{Value: v}
			continue
		}
		value, kind, err := s.engine.conv.Convert(v, t)
		if err != nil {
			return nil, fmt.Errorf("engine: $%d: %w", i+1, err)
		}
		args[i] = param.Arg{Value: value, Kind: kind}
	}
	return args, nil
}

// Begin pins one connection until Commit or Rollback.
func (s *Session) Begin(ctx context.Context) error {
	if err := s.conn.Begin(ctx); err != nil {
		return err
	}
	s.log.Debug().Msg("transaction started")
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	err := s.conn.Commit(ctx)
	s.log.Debug().Err(err).Msg("transaction committed")
	return err
}

func (s *Session) Rollback(ctx context.Context) error {
	err := s.conn.Rollback(ctx)
	s.log.Debug().Err(err).Msg("transaction rolled back")
	return err
}

func (s *Session) InTransaction() bool {
	return s.conn.InTransaction()
}

// Transactional runs fn inside a transaction. It commits when fn returns nil
// and rolls back when fn fails or panics.
func (s *Session) Transactional(ctx context.Context, fn func(*Session) error) error {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(s); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return s.Commit(ctx)
}

// Quote renders value as a literal for kind.
func (s *Session) Quote(value any, kind param.Kind) (string, error) {
	return s.conn.Quote(value, kind)
}

func (s *Session) QuoteIdentifier(name string) string {
	return s.conn.Dialect().QuoteIdentifier(name)
}

func (s *Session) logDone(sql string, start time.Time, rows int64) {
	s.log.Debug().
		Str("sql", sql).
		Int64("rows", rows).
		Dur("elapsed", time.Since(start)).
		Msg("statement executed")
}

func (s *Session) logFailure(sql string, start time.Time, err error) {
	s.log.Debug().
		Err(err).
		Str("sql", sql).
		Dur("elapsed", time.Since(start)).
		Msg("statement failed")
}
