package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/engine"
	"github.com/aqasim81/schemagate/internal/tracker"
)

func (a *app) status(ctx context.Context, s *session) error {
	var (
		applied []tracker.AppliedRecord
		pending []changelog.ChangeSet
	)

	_, err := s.withConnection(ctx, func(ctx context.Context, mc engine.Context) (engine.Result, error) {
		var err error

		applied, pending, err = s.eng.Status(ctx, mc)
		if err != nil {
			return engine.Failed(err, 0), err
		}

		return engine.UpToDate(), nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Applied (%d):\n", len(applied))

	for _, r := range applied {
		fmt.Fprintf(a.stdout, "  %4d  %s  %s  %s\n",
			r.OrderExecuted, r.AppliedAt.UTC().Format(time.RFC3339), r.DeploymentID, r.ID)
	}

	fmt.Fprintf(a.stdout, "Pending (%d):\n", len(pending))

	for _, cs := range pending {
		fmt.Fprintf(a.stdout, "  %s\n", cs.Identity())
	}

	return nil
}
