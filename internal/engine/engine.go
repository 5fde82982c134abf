package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aqasim81/schemagate/internal/changelog"
	"github.com/aqasim81/schemagate/internal/database"
	"github.com/aqasim81/schemagate/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	ProgressStarting  = "starting"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// ProgressEvent is emitted by the engine for each change set it applies.
type ProgressEvent struct {
	ChangeSet changelog.ChangeSet
	Status    string
	Duration  time.Duration
	Error     error
}

// Store abstracts the change tracking table for testability.
type Store interface {
	EnsureTable(ctx context.Context, ex database.Execer) error
	Applied(ctx context.Context, ex database.Execer) ([]tracker.AppliedRecord, error)
	Record(ctx context.Context, ex database.Execer, r tracker.AppliedRecord) error
}

// Conn is the live connection an invocation runs on. *database.Conn satisfies it.
type Conn interface {
	database.Execer
	Begin(ctx context.Context) (database.Tx, error)
	AutoCommit() bool
}

// Context binds one connection, one changelog reference and one execution
// context filter for the duration of a single call.
type Context struct {
	Conn         Conn
	ChangelogRef string
	Contexts     []string
}

// NewContext builds a Context from a comma-separated context filter.
func NewContext(conn Conn, changelogRef, contexts string) Context {
	return Context{Conn: conn, ChangelogRef: changelogRef, Contexts: changelog.ParseContexts(contexts)}
}

// lockReleaser is returned by acquireLock and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires a cross-process migration lock on the migration connection.
type lockFunc func(ctx context.Context, conn database.Execer) (lockReleaser, error)

// Engine compares declared change sets with applied records and applies the
// difference in declaration order.
type Engine struct {
	source          changelog.Source
	store           Store
	log             logrus.FieldLogger
	onProgress      func(ProgressEvent)
	acquireLock     lockFunc
	now             func() time.Time
	newDeploymentID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger every invocation reports to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithProgressCallback sets a function called for each change set processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// WithAdvisoryLock serialises Apply across processes with a Postgres advisory
// lock on the tracking table, held by the connection Apply runs on. A run
// that finds the lock taken fails instead of waiting.
func WithAdvisoryLock() Option {
	return func(e *Engine) {
		e.acquireLock = func(ctx context.Context, conn database.Execer) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, conn, database.LockKey(tracker.TableName))
		}
	}
}

// WithClock overrides the time source used for applied_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine reading change sets from source and tracking them in store.
func New(source changelog.Source, store Store, opts ...Option) *Engine {
	e := &Engine{
		source:          source,
		store:           store,
		now:             time.Now,
		newDeploymentID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		e.log = discard
	}

	return e
}

// CheckUnapplied returns, in changelog order, every eligible change set with
// no applied record. It only reads the tracking table, creating it if absent.
func (e *Engine) CheckUnapplied(ctx context.Context, mc Context) ([]changelog.ChangeSet, error) {
	pending, _, err := e.pending(ctx, mc)

	return pending, err
}

// Status returns the applied records alongside the pending change sets.
func (e *Engine) Status(ctx context.Context, mc Context) ([]tracker.AppliedRecord, []changelog.ChangeSet, error) {
	pending, applied, err := e.pending(ctx, mc)

	return applied, pending, err
}

// VerifyUpToDate succeeds with UpToDate when nothing is pending. Otherwise it
// logs every pending identity and fails with *UnmigratedChangeSetsError.
func (e *Engine) VerifyUpToDate(ctx context.Context, mc Context) (Result, error) {
	log := e.log.WithField("changelog", mc.ChangelogRef)

	pending, _, err := e.pending(ctx, mc)
	if err != nil {
		log.WithError(err).Error("Could not determine unapplied change sets")

		return Failed(err, 0), err
	}

	if len(pending) == 0 {
		log.Info("Migrations are up to date.")

		return UpToDate(), nil
	}

	ids := make([]changelog.ID, len(pending))
	for i, cs := range pending {
		ids[i] = cs.Identity()
		log.WithField("changeset", ids[i].String()).Error("Found unapplied change set")
	}

	log.Error("Startup failure due to unapplied change sets.")

	uerr := &UnmigratedChangeSetsError{IDs: ids}

	return Failed(uerr, 0), uerr
}

// Apply applies every pending change set in order. See applyInTransaction and
// applyAutoCommit for the failure semantics of each commit mode.
func (e *Engine) Apply(ctx context.Context, mc Context) (Result, error) {
	log := e.log.WithField("changelog", mc.ChangelogRef)
	log.Info("Starting migrations")

	if e.acquireLock != nil {
		lock, err := e.acquireLock(ctx, mc.Conn)
		if err != nil {
			err = fmt.Errorf("%w: acquiring migration lock: %w", ErrConnectivity, err)
			log.WithError(err).Error("An error occurred executing migrations")

			return Failed(err, 0), err
		}

		defer func() {
			if err := lock.Release(ctx); err != nil {
				log.WithError(err).Warn("Could not release migration lock")
			}
		}()
	}

	pending, applied, err := e.pending(ctx, mc)
	if err != nil {
		log.WithError(err).Error("An error occurred executing migrations")

		return Failed(err, 0), err
	}

	if len(pending) == 0 {
		log.Info("Migrations are up to date.")

		return Applied(0), nil
	}

	r := &run{deploymentID: e.newDeploymentID(), orderBase: len(applied)}
	log = log.WithFields(logrus.Fields{"deployment_id": r.deploymentID, "pending": len(pending)})

	var res Result
	if mc.Conn.AutoCommit() {
		res = e.applyAutoCommit(ctx, log, mc.Conn, pending, r)
	} else {
		res = e.applyInTransaction(ctx, log, mc.Conn, pending, r)
	}

	if res.Err != nil {
		log.WithError(res.Err).WithField("applied", res.Count).Error("An error occurred executing migrations")

		return res, res.Err
	}

	log.WithField("applied", res.Count).Info("Migrations applied")

	return res, nil
}

// run carries the values shared by every record of one Apply call.
type run struct {
	deploymentID string
	orderBase    int
}

func (e *Engine) record(r *run, cs changelog.ChangeSet, i int) tracker.AppliedRecord {
	return tracker.AppliedRecord{
		ID:            cs.Identity(),
		Checksum:      cs.Checksum(),
		AppliedAt:     e.now().UTC(),
		OrderExecuted: r.orderBase + i + 1,
		DeploymentID:  r.deploymentID,
	}
}

// pending loads the changelog and the applied records and returns the
// eligible change sets that have not been applied. Applied change sets whose
// checksum changed since they ran fail the whole comparison.
func (e *Engine) pending(ctx context.Context, mc Context) ([]changelog.ChangeSet, []tracker.AppliedRecord, error) {
	cl, err := e.source.Load(mc.ChangelogRef)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrChangeLog, err)
	}

	if err := e.store.EnsureTable(ctx, mc.Conn); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	applied, err := e.store.Applied(ctx, mc.Conn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	byID := make(map[changelog.ID]tracker.AppliedRecord, len(applied))
	for _, rec := range applied {
		byID[rec.ID] = rec
	}

	var pending []changelog.ChangeSet

	for _, cs := range cl.ChangeSets {
		if rec, ok := byID[cs.Identity()]; ok {
			if rec.Checksum != cs.Checksum() {
				return nil, nil, fmt.Errorf(
					"%w: change set %s: %w: stored=%s computed=%s",
					ErrChangeLog, cs.Identity(), tracker.ErrChecksumMismatch, rec.Checksum, cs.Checksum(),
				)
			}

			continue
		}

		if !changelog.Eligible(mc.Contexts, cs.Contexts()) {
			continue
		}

		pending = append(pending, cs)
	}

	return pending, applied, nil
}

// applyOne runs a change set's operations and writes its record on ex.
func (e *Engine) applyOne(ctx context.Context, ex database.Execer, cs changelog.ChangeSet, rec tracker.AppliedRecord) error {
	e.fireProgress(ProgressEvent{ChangeSet: cs, Status: ProgressStarting})

	start := e.now()
	err := cs.Apply(ctx, ex)

	if err == nil {
		err = e.store.Record(ctx, ex, rec)
	}

	duration := e.now().Sub(start)

	if err != nil {
		e.fireProgress(ProgressEvent{ChangeSet: cs, Status: ProgressFailed, Duration: duration, Error: err})

		return err
	}

	e.fireProgress(ProgressEvent{ChangeSet: cs, Status: ProgressCompleted, Duration: duration})

	return nil
}

// applyAutoCommit applies change sets directly on the connection. Every
// statement commits as it runs, so a failure leaves earlier statements of the
// failing change set in place and nothing can be rolled back.
func (e *Engine) applyAutoCommit(
	ctx context.Context,
	log logrus.FieldLogger,
	conn Conn,
	pending []changelog.ChangeSet,
	r *run,
) Result {
	for i, cs := range pending {
		if err := e.applyOne(ctx, conn, cs, e.record(r, cs, i)); err != nil {
			log.WithField("changeset", cs.Identity().String()).
				Warn("Connection is in autocommit mode; statements already executed cannot be rolled back")

			return Failed(&ChangeSetApplyError{ID: cs.Identity(), Applied: i, Err: err}, i)
		}
	}

	return Applied(len(pending))
}

func (e *Engine) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
