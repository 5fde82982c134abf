package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const defaultMaxConns = 5

// Options describes how to reach the target database.
type Options struct {
	Driver   Driver
	URL      string
	User     string
	Password string
	MaxConns int

	// AutoCommit makes every statement commit on its own; the engine then
	// cannot batch change sets into a single transaction.
	AutoCommit bool

	// StatementTimeout and LockTimeout are sent as Postgres runtime
	// parameters on every new session. Ignored for sqlite.
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// Pool hands out dedicated connections to the target database.
type Pool struct {
	db         *sql.DB
	driver     Driver
	autoCommit bool
}

// Open builds a connection pool for the given options and pings the database
// to verify connectivity.
func Open(ctx context.Context, opts Options) (*Pool, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidDatabaseURL)
	}

	var (
		db  *sql.DB
		err error
	)

	switch opts.Driver {
	case DriverPgx:
		db, err = openPgx(opts)
	case DriverSQLite:
		db, err = sql.Open(string(DriverSQLite), opts.URL)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}

	if err != nil {
		return nil, err
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}

	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Pool{db: db, driver: opts.Driver, autoCommit: opts.AutoCommit}, nil
}

func openPgx(opts Options) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	if opts.User != "" {
		connCfg.User = opts.User
	}

	if opts.Password != "" {
		connCfg.Password = opts.Password
	}

	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = make(map[string]string)
	}

	if opts.StatementTimeout > 0 {
		connCfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	if opts.LockTimeout > 0 {
		connCfg.RuntimeParams["lock_timeout"] = strconv.FormatInt(opts.LockTimeout.Milliseconds(), 10)
	}

	return stdlib.OpenDB(*connCfg), nil
}

// Conn acquires a dedicated connection from the pool. The caller owns it and
// must Close it.
func (p *Pool) Conn(ctx context.Context) (*Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return NewConn(c, p.driver, p.autoCommit), nil
}

// DB exposes the underlying handle, e.g. for advisory locks.
func (p *Pool) DB() *sql.DB { return p.db }

// Driver reports the driver the pool was opened with.
func (p *Pool) Driver() Driver { return p.driver }

// Close releases every connection held by the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}
