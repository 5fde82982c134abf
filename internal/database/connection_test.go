package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schemagate/internal/database"
)

func TestOpen_invalidURL_returnsInvalidURLError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := database.Open(ctx, database.Options{Driver: database.DriverPgx, URL: "not-a-valid-url"})

	require.ErrorIs(t, err, database.ErrInvalidDatabaseURL)
}

func TestOpen_emptyURL_returnsError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := database.Open(ctx, database.Options{Driver: database.DriverPgx, URL: ""})

	require.ErrorIs(t, err, database.ErrInvalidDatabaseURL)
}

func TestOpen_unknownDriver_returnsError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := database.Open(ctx, database.Options{Driver: "oracle", URL: "whatever"})

	require.ErrorIs(t, err, database.ErrUnsupportedDriver)
}

func TestOpen_sqlite_connReportsCommitMode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, err := database.Open(ctx, database.Options{
		Driver:     database.DriverSQLite,
		URL:        filepath.Join(t.TempDir(), "test.db"),
		AutoCommit: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { pool.Close() })

	conn, err := pool.Conn(ctx)
	require.NoError(t, err)

	assert.True(t, conn.AutoCommit())
	assert.Equal(t, database.DriverSQLite, conn.Driver())

	var one int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "second close is a no-op")
}

func TestConn_Begin_commitAndRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, err := database.Open(ctx, database.Options{
		Driver: database.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { pool.Close() })

	conn, err := pool.Conn(ctx)
	require.NoError(t, err)

	defer conn.Close()

	_, err = conn.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tx, err = conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "INSERT INTO t VALUES (2)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestParseDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    database.Driver
		wantErr bool
	}{
		{name: "pgx", input: "pgx", want: database.DriverPgx},
		{name: "sqlite", input: "sqlite", want: database.DriverSQLite},
		{name: "unknown", input: "mysql", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := database.ParseDriver(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, database.ErrUnsupportedDriver)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDriver_Placeholder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$3", database.DriverPgx.Placeholder(3))
	assert.Equal(t, "?", database.DriverSQLite.Placeholder(3))
}
