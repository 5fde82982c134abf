package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Driver names a supported database/sql driver.
type Driver string

// Supported drivers. DriverPgx goes through pgx's database/sql adapter.
const (
	DriverPgx    Driver = "pgx"
	DriverSQLite Driver = "sqlite"
)

// ParseDriver validates a driver name from configuration.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(name); d {
	case DriverPgx, DriverSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, name)
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
func (d Driver) Placeholder(n int) string {
	if d == DriverPgx {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

// Execer runs statements against either a connection or an open transaction.
// *sql.DB, *sql.Conn, *sql.Tx and *Conn all satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a transaction opened on a Conn. *sql.Tx satisfies it.
type Tx interface {
	Execer
	Commit() error
	Rollback() error
}
