package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/database"
)

// applyInTransaction applies the whole batch inside one transaction and
// commits once at the end. Each change set runs behind its own savepoint:
// when change set k fails, only its work is rolled back and the k-1 change
// sets before it are committed with their records.
func (e *Engine) applyInTransaction(
	ctx context.Context,
	log logrus.FieldLogger,
	conn Conn,
	pending []changelog.ChangeSet,
	r *run,
) Result {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return Failed(fmt.Errorf("%w: %w", ErrConnectivity, err), 0)
	}

	for i, cs := range pending {
		sp := savepointName(i)

		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			rollback(log, tx)

			return Failed(fmt.Errorf("%w: creating savepoint: %w", ErrConnectivity, err), 0)
		}

		if err := e.applyOne(ctx, tx, cs, e.record(r, cs, i)); err != nil {
			kept := keepPrefix(ctx, log, tx, sp, i)

			return Failed(&ChangeSetApplyError{ID: cs.Identity(), Applied: kept, Err: err}, kept)
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			rollback(log, tx)

			return Failed(fmt.Errorf("%w: releasing savepoint: %w", ErrConnectivity, err), 0)
		}
	}

	if err := tx.Commit(); err != nil {
		return Failed(fmt.Errorf("%w: committing migration transaction: %w", ErrConnectivity, err), 0)
	}

	return Applied(len(pending))
}

// keepPrefix undoes the failed change set and commits the done change sets
// that preceded it. It returns how many change sets ended up committed.
// Failures here are logged and never replace the change set's own error.
func keepPrefix(ctx context.Context, log logrus.FieldLogger, tx database.Tx, sp string, done int) int {
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
		log.WithError(err).Warn("Could not roll back failed change set; rolling back the migration transaction")
		rollback(log, tx)

		return 0
	}

	if err := tx.Commit(); err != nil {
		log.WithError(err).Warn("Could not commit change sets applied before the failure")

		return 0
	}

	return done
}

// rollback aborts tx. A rollback failure is logged, never returned.
func rollback(log logrus.FieldLogger, tx database.Tx) {
	if err := tx.Rollback(); err != nil {
		log.WithError(err).Warn("Could not roll back migration transaction")
	}
}

func savepointName(i int) string {
	return "changeset_" + strconv.Itoa(i+1)
}
