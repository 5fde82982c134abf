//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/database"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "schemagate_test"
	testUser      = "schemagate"
	testPassword  = "schemagate"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns a DSN
// without credentials; pass testUser and testPassword through Options.
// The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://%s:%s/%s?sslmode=disable", host, port.Port(), testDB)
}

// SetupPostgres starts a container and opens a pool on it with the given
// commit mode. The pool is closed when the test completes.
func SetupPostgres(t *testing.T, autoCommit bool) *database.Pool {
	t.Helper()

	pool, err := database.Open(context.Background(), database.Options{
		Driver:     database.DriverPgx,
		URL:        SetupPostgresDSN(t),
		User:       testUser,
		Password:   testPassword,
		AutoCommit: autoCommit,
	})
	require.NoError(t, err)

	t.Cleanup(func() { pool.Close() })

	return pool
}

// writeChangelog writes a YAML changelog to a temp dir and returns its path.
func writeChangelog(t *testing.T, content string) string {
	t.Helper()

	ref := filepath.Join(t.TempDir(), "changelog.yml")
	require.NoError(t, os.WriteFile(ref, []byte(content), 0o644))

	return ref
}

func postgresLoader(autoCommit bool) *changelog.Loader {
	return changelog.NewLoader(changelog.WithPostgresParser(autoCommit))
}
