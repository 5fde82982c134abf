package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/config"
	"github.com/aqasim81/schemagate/internal/database"
	"github.com/aqasim81/schemagate/internal/engine"
	"github.com/aqasim81/schemagate/internal/logging"
	"github.com/aqasim81/schemagate/internal/tracker"
)

// session is everything one command needs: configuration, an open pool and
// an engine bound to them.
type session struct {
	cfg  config.Config
	log  *logrus.Logger
	pool *database.Pool
	eng  *engine.Engine
}

func (a *app) open(ctx context.Context, user, password, configRef string) (*session, error) {
	cfg, err := config.Load(configRef, a.resources)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	cfg = cfg.WithCredentials(user, password)
	log := logging.New(cfg.Log, a.stderr)

	log.WithField("database", cfg.DB.String()).Debug("Connecting")

	pool, err := database.Open(ctx, cfg.DB.Options())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrConnectivity, err)
	}

	loaderOpts := []changelog.Option{changelog.WithResources(a.resources)}
	if cfg.DB.Driver == database.DriverPgx {
		loaderOpts = append(loaderOpts, changelog.WithPostgresParser(cfg.DB.AutoCommit))
	}

	engineOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithProgressCallback(a.printProgress),
	}
	if cfg.DB.AdvisoryLock {
		engineOpts = append(engineOpts, engine.WithAdvisoryLock())
	}

	eng := engine.New(changelog.NewLoader(loaderOpts...), tracker.New(cfg.DB.Driver), engineOpts...)

	return &session{cfg: cfg, log: log, pool: pool, eng: eng}, nil
}

func (s *session) close() {
	if err := s.pool.Close(); err != nil {
		s.log.WithError(err).Warn("Could not close connection pool")
	}
}

// withConnection runs fn on a fresh connection bound to the configured changelog.
func (s *session) withConnection(
	ctx context.Context,
	fn func(ctx context.Context, mc engine.Context) (engine.Result, error),
) (engine.Result, error) {
	m := s.cfg.Migrations

	return s.eng.WithConnection(ctx, s.pool, m.MigrationFile, m.Contexts, fn)
}

func (a *app) printProgress(ev engine.ProgressEvent) {
	switch ev.Status {
	case engine.ProgressStarting:
		fmt.Fprintf(a.stdout, "  Applying %s ... ", ev.ChangeSet.Identity())
	case engine.ProgressCompleted:
		fmt.Fprintf(a.stdout, "done (%s)\n", ev.Duration.Truncate(time.Millisecond))
	case engine.ProgressFailed:
		fmt.Fprintf(a.stdout, "FAILED\n")
		fmt.Fprintf(a.stdout, "    Error: %v\n", ev.Error)
	}
}
