package changelog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aqasim81/schemagate/internal/database"
)

// ID is the stable identity of a change set within its changelog.
type ID struct {
	ID     string
	Author string
	Path   string
}

// String renders the identity as path::id::author.
func (id ID) String() string {
	return id.Path + "::" + id.ID + "::" + id.Author
}

// ChangeSet is one atomic, identified unit of schema change. Its payload is
// opaque to the engine, which only ever calls Apply.
type ChangeSet interface {
	Identity() ID
	// Ordinal is the zero-based declaration position within the changelog.
	Ordinal() int
	// Contexts lists the execution contexts the change set is restricted to.
	// A leading "!" negates a context. Empty means always eligible.
	Contexts() []string
	Checksum() string
	Apply(ctx context.Context, ex database.Execer) error
}

// SQLChangeSet is a change set made of plain SQL statements.
type SQLChangeSet struct {
	id         ID
	ordinal    int
	contexts   []string
	statements []string
	checksum   string
}

// NewSQLChangeSet builds a change set. The checksum covers body, which is the
// unsplit SQL the statements were derived from.
func NewSQLChangeSet(id ID, ordinal int, contexts []string, body string, statements []string) *SQLChangeSet {
	return &SQLChangeSet{
		id:         id,
		ordinal:    ordinal,
		contexts:   contexts,
		statements: statements,
		checksum:   ComputeChecksum(body),
	}
}

func (c *SQLChangeSet) Identity() ID       { return c.id }
func (c *SQLChangeSet) Ordinal() int       { return c.ordinal }
func (c *SQLChangeSet) Contexts() []string { return c.contexts }
func (c *SQLChangeSet) Checksum() string   { return c.checksum }

// Statements returns the statements Apply executes, in order.
func (c *SQLChangeSet) Statements() []string { return c.statements }

// Apply executes each statement in order and stops at the first failure.
func (c *SQLChangeSet) Apply(ctx context.Context, ex database.Execer) error {
	for i, stmt := range c.statements {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d of %s: %w", i+1, c.id, err)
		}
	}

	return nil
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
