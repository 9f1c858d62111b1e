// Package driver runs statements over connections leased from a pool.
package driver

import (
	"context"
	"strings"

	"github.com/Konsultn-Engineering/pgswarm/cache"
	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/pool"
)

// Conn is one caller's view of the pool. Outside a transaction every
// statement leases its own connection; between Begin and Commit or Rollback
// all statements share the pinned one. A Conn is not safe for concurrent use.
type Conn struct {
	pool    *pool.Pool
	dialect dialect.Dialect

	tx       *pool.Conn
	txBroken bool
}

func NewConn(p *pool.Pool, d dialect.Dialect) *Conn {
	if d == nil {
		d = dialect.NewPostgresDialect()
	}
	return &Conn{pool: p, dialect: d}
}

// Prepare leases a connection and returns a statement bound to it. SQL that
// references $1 is prepared on the server under a name derived from its
// text, once per physical connection.
func (c *Conn) Prepare(ctx context.Context, sql string) (*Statement, error) {
	pc, err := c.lease(ctx)
	if err != nil {
		return nil, err
	}

	st := &Statement{conn: c, pc: pc, sql: sql}
	if !strings.Contains(sql, "$1") {
		return st, nil
	}

	name := cache.StatementName(sql)
	if !c.pool.HasPrepared(pc, name) {
		if err := pc.Transport().Prepare(ctx, name, sql); err != nil {
			c.release(pc, true)
			return nil, newQueryError(sql, err)
		}
		c.pool.RegisterPrepared(pc, name)
	}
	st.name = name
	return st, nil
}

// Query prepares sql and sends it without parameters.
func (c *Conn) Query(ctx context.Context, sql string) (*Statement, error) {
	st, err := c.Prepare(ctx, sql)
	if err != nil {
		return nil, err
	}
	if err := st.Execute(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// Exec runs sql without parameters and returns the affected row count
// reported by the server. No result set is materialised.
func (c *Conn) Exec(ctx context.Context, sql string) (int64, error) {
	pc, err := c.lease(ctx)
	if err != nil {
		return 0, err
	}
	n, err := pc.Transport().Exec(ctx, sql)
	c.release(pc, err != nil)
	if err != nil {
		return 0, newQueryError(sql, err)
	}
	return n, nil
}

// Quote renders value as a literal of the given kind.
func (c *Conn) Quote(value any, kind param.Kind) (string, error) {
	return c.dialect.Quote(value, kind)
}

func (c *Conn) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

// Begin pins a connection and opens a transaction on it.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return ErrTransactionActive
	}
	pc, err := c.pool.Lease(ctx, true)
	if err != nil {
		return err
	}
	c.tx = pc
	if err := c.control(ctx, "BEGIN"); err != nil {
		c.endTx(true)
		return err
	}
	return nil
}

func (c *Conn) Commit(ctx context.Context) error {
	return c.finish(ctx, "COMMIT")
}

func (c *Conn) Rollback(ctx context.Context) error {
	return c.finish(ctx, "ROLLBACK")
}

// finish ends the transaction whatever the outcome. A failed control
// statement, or any statement that failed mid-transaction, closes the
// pinned connection.
func (c *Conn) finish(ctx context.Context, sql string) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	err := c.control(ctx, sql)
	c.endTx(err != nil || c.txBroken)
	return err
}

func (c *Conn) control(ctx context.Context, sql string) error {
	st, err := c.Query(ctx, sql)
	if err != nil {
		return err
	}
	_, err = st.RowCount(ctx)
	return err
}

func (c *Conn) endTx(force bool) {
	pc := c.tx
	c.tx = nil
	c.txBroken = false
	c.pool.Release(pc, force)
}

func (c *Conn) lease(ctx context.Context) (*pool.Conn, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	return c.pool.Lease(ctx, false)
}

// release hands pc back to the pool unless it is the pinned transaction
// connection, which is only released by endTx.
func (c *Conn) release(pc *pool.Conn, force bool) {
	if c.tx != nil && pc == c.tx {
		if force {
			c.txBroken = true
		}
		return
	}
	c.pool.Release(pc, force)
}
