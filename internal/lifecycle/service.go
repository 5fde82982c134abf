// Package lifecycle gates a host process's startup on the database schema.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aqasim81/schemagate/internal/config"
	"github.com/aqasim81/schemagate/internal/engine"
)

// Service runs migrations, or only checks for them, when its host starts.
type Service struct {
	cfg      config.Migrations
	provider engine.Provider
	eng      *engine.Engine
	log      logrus.FieldLogger
}

// New creates a Service. A nil log discards output.
func New(cfg config.Migrations, provider engine.Provider, eng *engine.Engine, log logrus.FieldLogger) *Service {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &Service{cfg: cfg, provider: provider, eng: eng, log: log}
}

// Start applies pending change sets when auto-migrate is on, then always
// verifies nothing is left pending. Both steps share one connection. When the
// apply fails the verification still runs and both failures are reported,
// the apply failure first.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.eng.WithConnection(ctx, s.provider, s.cfg.MigrationFile, s.cfg.Contexts,
		func(ctx context.Context, mc engine.Context) (engine.Result, error) {
			var applyErr error

			if s.cfg.AutoMigrate {
				_, applyErr = s.eng.Apply(ctx, mc)
			}

			res, err := s.eng.VerifyUpToDate(ctx, mc)
			if applyErr != nil {
				err = errors.Join(applyErr, err)

				return engine.Failed(err, res.Count), err
			}

			return res, err
		})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartupAborted, err)
	}

	return nil
}

// Stop does nothing; migrations are never reversed on shutdown.
func (s *Service) Stop(context.Context) error {
	return nil
}

// Migrate applies pending change sets on a connection of its own, regardless
// of the auto-migrate setting.
func (s *Service) Migrate(ctx context.Context) (engine.Result, error) {
	return s.eng.WithConnection(ctx, s.provider, s.cfg.MigrationFile, s.cfg.Contexts, s.eng.Apply)
}

// Run starts the service and, only if that succeeds, calls serve. Stop runs
// once serve returns.
func (s *Service) Run(ctx context.Context, serve func(ctx context.Context) error) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if err := s.Stop(ctx); err != nil {
			s.log.WithError(err).Warn("Stopping migration service failed")
		}
	}()

	return serve(ctx)
}
