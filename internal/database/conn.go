package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Conn is a single live connection with a known commit mode.
type Conn struct {
	conn       *sql.Conn
	driver     Driver
	autoCommit bool

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an already-acquired *sql.Conn.
func NewConn(c *sql.Conn, driver Driver, autoCommit bool) *Conn {
	return &Conn{conn: c, driver: driver, autoCommit: autoCommit}
}

// ExecContext runs a statement directly on the connection.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query directly on the connection.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query directly on the connection.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// Begin opens a transaction on this connection.
func (c *Conn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// AutoCommit reports whether statements commit individually.
func (c *Conn) AutoCommit() bool { return c.autoCommit }

// Driver reports which driver backs the connection.
func (c *Conn) Driver() Driver { return c.driver }

// Close returns the connection to its pool. Only the first call has an
// effect; later calls return the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}
