// Package engine is the entry point callers use to run SQL: it rewrites list
// parameters, converts typed values and drives statements over the pool.
package engine

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/pgswarm/cache"
	"github.com/Konsultn-Engineering/pgswarm/connector"
	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/driver"
	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/Konsultn-Engineering/pgswarm/pool"
	"github.com/Konsultn-Engineering/pgswarm/sqlparser"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithConverter replaces param.DefaultRegistry for typed values.
func WithConverter(c param.Converter) Option {
	return func(e *Engine) { e.conv = c }
}

func WithDialect(d dialect.Dialect) Option {
	return func(e *Engine) { e.dialect = d }
}

// WithScanCacheSize bounds how many distinct SQL texts keep their scanned
// placeholder positions.
func WithScanCacheSize(n int) Option {
	return func(e *Engine) { e.scanCacheSize = n }
}

// Engine is shared by all callers. Each logical caller works through its
// own Session.
type Engine struct {
	pool     *pool.Pool
	dialect  dialect.Dialect
	conv     param.Converter
	rewriter *sqlparser.Rewriter
	log      zerolog.Logger

	scanCacheSize int
	ownsPool      bool
}

// New wraps an existing pool.
func New(p *pool.Pool, opts ...Option) *Engine {
	e := newEngine(opts)
	e.pool = p
	e.init()
	return e
}

// Open resolves the named provider, builds a pool for cfg and returns an
// engine that closes the pool on Close.
func Open(ctx context.Context, driverName string, cfg connector.Config, opts ...Option) (*Engine, error) {
	conn, err := connector.New(driverName, cfg)
	if err != nil {
		return nil, err
	}

	e := newEngine(opts)
	if e.dialect == nil {
		e.dialect = conn.Dialect()
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	p, err := pool.New(ctx, conn, cfg.Pool,
		pool.WithLogger(e.log),
		pool.WithRetry(cfg.Retry),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s pool: %w", driverName, err)
	}
	e.pool = p
	e.ownsPool = true
	e.init()
	return e, nil
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		log:           zerolog.Nop(),
		conv:          param.DefaultRegistry,
		scanCacheSize: cache.DefaultQueryCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) init() {
	if e.dialect == nil {
		e.dialect = dialect.NewPostgresDialect()
	}
	e.rewriter = sqlparser.New(e.dialect, e.scanCacheSize)
}

// Session starts a new logical caller. Sessions are cheap and not safe for
// concurrent use.
func (e *Engine) Session() *Session {
	id := ulid.Make()
	return &Session{
		id:     id,
		engine: e,
		conn:   driver.NewConn(e.pool, e.dialect),
		log:    e.log.With().Str("session", id.String()).Logger(),
	}
}

// ExecuteQuery runs sql on a fresh session. See Session.ExecuteQuery.
func (e *Engine) ExecuteQuery(ctx context.Context, sql string, params param.Params) (*driver.Statement, error) {
	return e.Session().ExecuteQuery(ctx, sql, params)
}

// ExecuteStatement runs sql on a fresh session. See Session.ExecuteStatement.
func (e *Engine) ExecuteStatement(ctx context.Context, sql string, params param.Params) (int64, error) {
	return e.Session().ExecuteStatement(ctx, sql, params)
}

func (e *Engine) Pool() *pool.Pool {
	return e.pool
}

func (e *Engine) Dialect() dialect.Dialect {
	return e.dialect
}

func (e *Engine) Stats() connector.ConnectionStats {
	return e.pool.Stats()
}

// Close closes the pool if the engine built it.
func (e *Engine) Close(ctx context.Context) error {
	if !e.ownsPool {
		return nil
	}
	return e.pool.Close(ctx)
}
