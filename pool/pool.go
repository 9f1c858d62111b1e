// Package pool leases physical connections to callers one at a time.
//
// The pool is elastic: Lease reuses a free connection when one exists and
// opens a new one otherwise, so it never blocks. The configured maximum is a
// soft floor for eviction. Idle connections are only closed while the pool
// holds more than that many.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/pgswarm/connector"
	"github.com/Konsultn-Engineering/pgswarm/transport"
	"github.com/rs/zerolog"
)

const closeTimeout = 5 * time.Second

var (
	ErrConnectionFailure = errors.New("pool: connection failure")
	ErrClosed            = errors.New("pool: closed")
)

// ConnectionError reports a physical connection that could not be opened.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "pool: cannot open connection: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailure
}

type Status uint8

const (
	Free Status = iota
	Busy
)

func (s Status) String() string {
	if s == Busy {
		return "busy"
	}
	return "free"
}

// Conn is the pool's record of one physical connection. Callers borrow it
// between Lease and Release and must not keep it afterwards.
type Conn struct {
	id         uint64
	tc         transport.Conn
	status     Status
	lastActive time.Time
	prepared   map[string]struct{}
}

// ID is the connection identity, unique for the lifetime of the pool.
func (c *Conn) ID() uint64 { return c.id }

// Transport is the session the connection drives.
func (c *Conn) Transport() transport.Conn { return c.tc }

type Option func(*Pool)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// WithClock replaces time.Now for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// WithRetry retries opening the default connection at construction.
func WithRetry(cfg *connector.RetryConfig) Option {
	return func(p *Pool) { p.retry = cfg }
}

type Pool struct {
	opener transport.Opener
	cfg    connector.PoolConfig
	retry  *connector.RetryConfig
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	conns   []*Conn
	def     *Conn
	nextID  uint64
	opened  uint64
	evicted uint64
	closed  bool
}

// New builds a pool and opens its default connection.
func New(ctx context.Context, opener transport.Opener, cfg connector.PoolConfig, opts ...Option) (*Pool, error) {
	p := &Pool{
		opener: opener,
		cfg:    cfg.WithDefaults(),
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	tc, err := connector.Retry(ctx, p.retry, p.opener.Open)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	p.mu.Lock()
	p.def = p.registerLocked(tc, Free)
	p.mu.Unlock()

	p.log.Debug().
		Int("max_open", p.cfg.MaxOpen).
		Dur("max_idle_time", p.cfg.MaxIdleTime).
		Msg("pool ready")
	return p, nil
}

// Lease hands out a connection marked Busy. A pinned lease prefers the
// default connection. When nothing is free a new connection is opened; a
// failure to open is returned as a *ConnectionError and not retried.
func (p *Pool) Lease(ctx context.Context, pinned bool) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if c := p.pickLocked(pinned); c != nil {
		c.status = Busy
		c.lastActive = p.now()
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	tc, err := p.opener.Open(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("open connection failed")
		return nil, &ConnectionError{Err: err}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.closeTransport(tc)
		return nil, ErrClosed
	}
	c := p.registerLocked(tc, Busy)
	size := len(p.conns)
	p.mu.Unlock()

	p.log.Debug().Uint64("conn_id", c.id).Int("pool_size", size).Msg("connection opened")
	return c, nil
}

// Release marks c Free and sweeps idle connections. With forceClose the
// connection is aged so the sweep picks it first, but the sweep never takes
// the pool below MaxOpen: at or under the soft maximum a force-released
// connection goes back Free and stays usable unless its transport reports
// closed, in which case it is purged regardless. Releasing a connection the
// pool no longer tracks is a no-op.
func (p *Pool) Release(c *Conn, forceClose bool) {
	if c == nil {
		return
	}

	p.mu.Lock()
	if p.indexLocked(c) < 0 {
		p.mu.Unlock()
		return
	}
	c.status = Free
	if forceClose {
		c.lastActive = time.Time{}
	} else {
		c.lastActive = p.now()
	}
	victims := p.sweepLocked()
	p.mu.Unlock()

	for _, v := range victims {
		p.closeTransport(v.tc)
	}
}

// HasPrepared reports whether name is registered on c.
func (p *Pool) HasPrepared(c *Conn, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := c.prepared[name]
	return ok
}

// RegisterPrepared records that name exists on c's server session.
func (p *Pool) RegisterPrepared(c *Conn, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexLocked(c) < 0 {
		return
	}
	c.prepared[name] = struct{}{}
}

// Len is the number of tracked connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Default returns the connection opened at construction, or nil once it has
// been purged.
func (p *Pool) Default() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.def
}

func (p *Pool) Stats() connector.ConnectionStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := connector.ConnectionStats{
		OpenConnections: len(p.conns),
		Opened:          p.opened,
		Evicted:         p.evicted,
	}
	for _, c := range p.conns {
		if c.status == Busy {
			s.InUse++
		} else {
			s.Idle++
		}
		s.PreparedStatements += len(c.prepared)
	}
	return s
}

// Close closes every connection, busy or not. Later leases fail with
// ErrClosed.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.def = nil
	p.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.tc.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) registerLocked(tc transport.Conn, status Status) *Conn {
	p.nextID++
	p.opened++
	c := &Conn{
		id:         p.nextID,
		tc:         tc,
		status:     status,
		lastActive: p.now(),
		prepared:   make(map[string]struct{}),
	}
	p.conns = append(p.conns, c)
	return c
}

func (p *Pool) pickLocked(pinned bool) *Conn {
	if pinned && p.def != nil && usable(p.def) {
		return p.def
	}
	for _, c := range p.conns {
		if usable(c) {
			return c
		}
	}
	return nil
}

func usable(c *Conn) bool {
	return c.status == Free && !c.tc.IsBusy() && !c.tc.IsClosed()
}

func (p *Pool) indexLocked(c *Conn) int {
	for i, x := range p.conns {
		if x == c {
			return i
		}
	}
	return -1
}

// sweepLocked purges free connections whose transport is closed, then free
// connections idle past MaxIdleTime while the pool is above MaxOpen. The
// default connection is only purged once closed. The caller closes the
// returned transports after unlocking.
func (p *Pool) sweepLocked() []*Conn {
	now := p.now()
	var victims []*Conn

	kept := p.conns[:0]
	for i, c := range p.conns {
		remaining := len(kept) + len(p.conns) - i
		switch {
		case c.status != Free:
		case c.tc.IsClosed():
			victims = append(victims, c)
			continue
		case c != p.def && remaining > p.cfg.MaxOpen && now.Sub(c.lastActive) > p.cfg.MaxIdleTime:
			victims = append(victims, c)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(p.conns); i++ {
		p.conns[i] = nil
	}
	p.conns = kept

	for _, v := range victims {
		if v == p.def {
			p.def = nil
		}
		p.evicted++
		p.log.Debug().
			Uint64("conn_id", v.id).
			Dur("idle", now.Sub(v.lastActive)).
			Int("pool_size", len(p.conns)).
			Msg("connection evicted")
	}
	return victims
}

func (p *Pool) closeTransport(tc transport.Conn) {
	if tc.IsClosed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := tc.Close(ctx); err != nil {
		p.log.Warn().Err(err).Msg("close connection failed")
	}
}
