package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aqasim81/schemagate/internal/changelog"
)

// ErrConnectivity indicates a database connection could not be obtained or used.
var ErrConnectivity = errors.New("database connectivity error")

// ErrChangeLog indicates the changelog could not be located, parsed or validated.
var ErrChangeLog = errors.New("changelog error")

// ErrChangeSetApply is matched by every *ChangeSetApplyError.
var ErrChangeSetApply = errors.New("change set apply failed")

// ErrUnmigratedChangeSets is matched by every *UnmigratedChangeSetsError.
var ErrUnmigratedChangeSets = errors.New("unmigrated change sets")

// ChangeSetApplyError reports the change set whose operations failed and how
// many change sets of the same run were applied before it.
type ChangeSetApplyError struct {
	ID      changelog.ID
	Applied int
	Err     error
}

func (e *ChangeSetApplyError) Error() string {
	return fmt.Sprintf("applying change set %s (%d applied before failure): %v", e.ID, e.Applied, e.Err)
}

func (e *ChangeSetApplyError) Unwrap() []error {
	return []error{ErrChangeSetApply, e.Err}
}

// UnmigratedChangeSetsError lists every pending change set identity found by
// VerifyUpToDate.
type UnmigratedChangeSetsError struct {
	IDs []changelog.ID
}

func (e *UnmigratedChangeSetsError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}

	return fmt.Sprintf("%d unmigrated change set(s): %s", len(e.IDs), strings.Join(ids, ", "))
}

func (e *UnmigratedChangeSetsError) Unwrap() error {
	return ErrUnmigratedChangeSets
}
