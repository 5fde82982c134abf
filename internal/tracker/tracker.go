package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/database"
)

// AppliedRecord is the persisted fact that a change set committed.
// Records are append-only.
type AppliedRecord struct {
	ID            changelog.ID
	Checksum      string
	AppliedAt     time.Time
	OrderExecuted int
	DeploymentID  string
}

// Tracker manages the schema_changelog table. It holds no connection: every
// call runs on the Execer it is given, so writes join the caller's transaction.
type Tracker struct {
	driver database.Driver
}

// New creates a Tracker that speaks the given driver's SQL dialect.
func New(driver database.Driver) *Tracker {
	return &Tracker{driver: driver}
}

// EnsureTable creates the schema_changelog table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context, ex database.Execer) error {
	if _, err := ex.ExecContext(ctx, createSchemaSQL(t.driver)); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// Applied returns every applied record in execution order.
func (t *Tracker) Applied(ctx context.Context, ex database.Execer) ([]AppliedRecord, error) {
	rows, err := ex.QueryContext(ctx,
		`SELECT id, author, filename, checksum, applied_at, order_executed, deployment_id
		 FROM `+TableName+`
		 ORDER BY order_executed`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied change sets: %w", err)
	}
	defer rows.Close()

	var applied []AppliedRecord

	for rows.Next() {
		var r AppliedRecord
		if err := rows.Scan(
			&r.ID.ID, &r.ID.Author, &r.ID.Path, &r.Checksum, &r.AppliedAt, &r.OrderExecuted, &r.DeploymentID,
		); err != nil {
			return nil, fmt.Errorf("scanning change set row: %w", err)
		}

		applied = append(applied, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning applied change sets: %w", err)
	}

	return applied, nil
}

// Record inserts the record for a change set that has just been applied.
func (t *Tracker) Record(ctx context.Context, ex database.Execer, r AppliedRecord) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO `+TableName+` (id, author, filename, checksum, applied_at, order_executed, deployment_id)
		 VALUES (`+t.placeholders(7)+`)`,
		r.ID.ID, r.ID.Author, r.ID.Path, r.Checksum, r.AppliedAt, r.OrderExecuted, r.DeploymentID,
	)
	if err != nil {
		return fmt.Errorf("recording change set %s as applied: %w", r.ID, err)
	}

	return nil
}

func (t *Tracker) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = t.driver.Placeholder(i + 1)
	}

	return strings.Join(ps, ", ")
}
