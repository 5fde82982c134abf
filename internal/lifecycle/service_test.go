package lifecycle_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/config"
	"github.com/aqasim81/schemagate/internal/database"
	"github.com/aqasim81/schemagate/internal/engine"
	"github.com/aqasim81/schemagate/internal/lifecycle"
	"github.com/aqasim81/schemagate/internal/tracker"
)

const twoTables = `changesets:
  - id: "1"
    author: alice
    sql: CREATE TABLE users (id INTEGER);
  - id: "2"
    author: alice
    sql: CREATE TABLE posts (id INTEGER);
`

const secondFails = `changesets:
  - id: "1"
    author: alice
    sql: CREATE TABLE users (id INTEGER);
  - id: "2"
    author: alice
    sql: INSERT INTO nowhere VALUES (1);
`

type harness struct {
	pool *database.Pool
	cfg  config.Migrations
	eng  *engine.Engine
}

func newHarness(t *testing.T, changelogYAML string, autoMigrate bool) *harness {
	t.Helper()

	dir := t.TempDir()
	ref := filepath.Join(dir, "changelog.yml")
	require.NoError(t, os.WriteFile(ref, []byte(changelogYAML), 0o644))

	pool, err := database.Open(context.Background(), database.Options{
		Driver: database.DriverSQLite,
		URL:    filepath.Join(dir, "app.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { pool.Close() })

	return &harness{
		pool: pool,
		cfg:  config.Migrations{MigrationFile: ref, AutoMigrate: autoMigrate},
		eng:  engine.New(changelog.NewLoader(), tracker.New(database.DriverSQLite)),
	}
}

func (h *harness) service() *lifecycle.Service {
	return lifecycle.New(h.cfg, h.pool, h.eng, nil)
}

func (h *harness) appliedCount(t *testing.T) int {
	t.Helper()

	var count int
	require.NoError(t, h.pool.DB().QueryRow("SELECT COUNT(*) FROM "+tracker.TableName).Scan(&count))

	return count
}

func TestService_Start(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		changelog   string
		autoMigrate bool
		wantErrs    []error
		wantApplied int
	}{
		{
			name:        "auto-migrate applies then verifies",
			changelog:   twoTables,
			autoMigrate: true,
			wantApplied: 2,
		},
		{
			name:      "pending without auto-migrate aborts",
			changelog: twoTables,
			wantErrs:  []error{lifecycle.ErrStartupAborted, engine.ErrUnmigratedChangeSets},
		},
		{
			name:        "failed auto-migrate reports apply and verify failures",
			changelog:   secondFails,
			autoMigrate: true,
			wantErrs: []error{
				lifecycle.ErrStartupAborted,
				engine.ErrChangeSetApply,
				engine.ErrUnmigratedChangeSets,
			},
			wantApplied: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.changelog, tt.autoMigrate)

			err := h.service().Start(context.Background())

			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
			}

			for _, want := range tt.wantErrs {
				require.ErrorIs(t, err, want)
			}

			assert.Equal(t, tt.wantApplied, h.appliedCount(t))
			assert.Zero(t, h.pool.DB().Stats().InUse, "connection released")
		})
	}
}

func TestService_Start_upToDateWithoutAutoMigrate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, twoTables, false)
	ctx := context.Background()

	res, err := h.service().Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Applied(2), res)

	require.NoError(t, h.service().Start(ctx))
}

func TestService_Migrate_logsStartOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, twoTables, false)
	logger, hook := test.NewNullLogger()
	eng := engine.New(changelog.NewLoader(), tracker.New(database.DriverSQLite), engine.WithLogger(logger))

	_, err := lifecycle.New(h.cfg, h.pool, eng, logger).Migrate(context.Background())
	require.NoError(t, err)

	starts := 0

	for _, entry := range hook.AllEntries() {
		if entry.Message == "Starting migrations" {
			starts++
		}
	}

	assert.Equal(t, 1, starts)
}

func TestService_Start_unreachableDatabase(t *testing.T) {
	t.Parallel()

	h := newHarness(t, twoTables, true)
	require.NoError(t, h.pool.Close())

	err := h.service().Start(context.Background())

	require.ErrorIs(t, err, lifecycle.ErrStartupAborted)
	assert.ErrorIs(t, err, engine.ErrConnectivity)
}

func TestService_Run(t *testing.T) {
	t.Parallel()

	t.Run("serves after a successful start", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, twoTables, true)
		served := false

		err := h.service().Run(context.Background(), func(context.Context) error {
			served = true

			return nil
		})

		require.NoError(t, err)
		assert.True(t, served)
	})

	t.Run("never serves when start fails", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, twoTables, false)
		served := false

		err := h.service().Run(context.Background(), func(context.Context) error {
			served = true

			return nil
		})

		require.ErrorIs(t, err, lifecycle.ErrStartupAborted)
		assert.False(t, served)
		assert.Zero(t, h.appliedCount(t))
	})
}

func TestService_Stop_isNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, twoTables, true)

	require.NoError(t, h.service().Stop(context.Background()))

	var tables int
	require.NoError(t, h.pool.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables))
	assert.Zero(t, tables, "stop touches nothing")
}
