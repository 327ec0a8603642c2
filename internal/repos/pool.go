package repos

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"erpbridge/internal/config"
	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
)

// Opener creates and verifies a new session. The default opens cfg's driver
// and pings it.
type Opener func(ctx context.Context) (*sqlx.DB, error)

// Pool owns the single session to the remote database. Nothing else keeps a
// reference to the *sqlx.DB beyond one request.
type Pool struct {
	cfg       config.DB
	open      Opener
	onConnect func(*sqlx.DB) error
	now       func() time.Time

	mu         sync.Mutex
	db         *sqlx.DB
	verifiedAt time.Time

	group singleflight.Group
}

type PoolOption func(*Pool)

func WithOpener(o Opener) PoolOption { return func(p *Pool) { p.open = o } }

// WithOnConnect runs fn on every freshly opened session before it is cached.
func WithOnConnect(fn func(*sqlx.DB) error) PoolOption {
	return func(p *Pool) { p.onConnect = fn }
}

func WithClock(now func() time.Time) PoolOption { return func(p *Pool) { p.now = now } }

func NewPool(cfg config.DB, opts ...PoolOption) *Pool {
	p := &Pool{cfg: cfg, now: time.Now}
	p.open = p.openDriver
	for _, o := range opts {
		o(p)
	}
	return p
}

// Acquire returns the established session, opening one if needed. Concurrent
// callers during a cold start share a single attempt and its outcome. A failed
// attempt is not cached.
func (p *Pool) Acquire(ctx context.Context) (*sqlx.DB, error) {
	if db := p.current(ctx); db != nil {
		return db, nil
	}
	ch := p.group.DoChan("connect", func() (any, error) {
		if db := p.current(context.Background()); db != nil {
			return db, nil
		}
		return p.connect()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sqlx.DB), nil
	case <-ctx.Done():
		return nil, &domain.ConnectionError{Server: p.cfg.Server(), Err: ctx.Err()}
	}
}

// current returns the cached session, re-verifying it when it has not been
// checked for longer than StaleAfter. The check runs without holding the lock,
// and a session that fails it is dropped only if nobody replaced it meanwhile.
func (p *Pool) current(ctx context.Context) *sqlx.DB {
	p.mu.Lock()
	db := p.db
	fresh := db == nil || p.cfg.StaleAfter <= 0 || p.now().Sub(p.verifiedAt) < p.cfg.StaleAfter
	p.mu.Unlock()
	if fresh {
		return db
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.connectTimeout())
	err := db.PingContext(pingCtx)
	cancel()

	p.mu.Lock()
	if p.db != db {
		cur := p.db
		p.mu.Unlock()
		return cur
	}
	if err == nil {
		p.verifiedAt = p.now()
		p.mu.Unlock()
		return db
	}
	if ctx.Err() != nil {
		// The caller gave up; that says nothing about the session.
		p.mu.Unlock()
		return nil
	}
	p.db = nil
	p.mu.Unlock()

	applog.Warn(nil, "pool.stale", err, map[string]any{"server": p.cfg.Server()})
	// Close lets statements already running on db finish.
	_ = db.Close()
	return nil
}

func (p *Pool) connect() (*sqlx.DB, error) {
	server := p.cfg.Server()
	applog.Info(nil, "pool.connect.attempt", map[string]any{"server": server, "driver": p.cfg.Driver})
	start := time.Now()

	// Detached from any single request: the attempt is shared by every waiter.
	ctx, cancel := context.WithTimeout(context.Background(), p.connectTimeout())
	defer cancel()

	db, err := p.open(ctx)
	if err == nil && p.onConnect != nil {
		if err = p.onConnect(db); err != nil {
			_ = db.Close()
		}
	}
	if err != nil {
		applog.Timed(nil, "pool.connect.fail", time.Since(start), err, map[string]any{"server": server})
		return nil, &domain.ConnectionError{Server: server, Err: err}
	}

	p.mu.Lock()
	p.db = db
	p.verifiedAt = p.now()
	p.mu.Unlock()
	applog.Timed(nil, "pool.connect.ok", time.Since(start), nil, map[string]any{"server": server})
	return db, nil
}

func (p *Pool) openDriver(ctx context.Context) (*sqlx.DB, error) {
	dsn, err := DSN(p.cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(p.cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (p *Pool) connectTimeout() time.Duration {
	if p.cfg.ConnectTimeout <= 0 {
		return 30 * time.Second
	}
	return p.cfg.ConnectTimeout
}

// Invalidate drops the session when err shows it is broken, so the next
// Acquire reconnects.
func (p *Pool) Invalidate(err error) {
	if !errors.Is(err, driver.ErrBadConn) {
		return
	}
	p.mu.Lock()
	db := p.db
	p.db = nil
	p.mu.Unlock()
	if db == nil {
		return
	}
	applog.Warn(nil, "pool.invalidate", err, map[string]any{"server": p.cfg.Server()})
	_ = db.Close()
}

func (p *Pool) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db != nil
}

func (p *Pool) Server() string { return p.cfg.Server() }

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	applog.Info(nil, "pool.closed", map[string]any{"server": p.cfg.Server()})
	return err
}
