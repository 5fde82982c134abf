package changelog

import "errors"

// ErrChangelogNotFound indicates the changelog reference resolved to nothing
// on disk or in the embedded resources.
var ErrChangelogNotFound = errors.New("changelog not found")

// ErrUnsupportedFormat indicates the changelog file extension is not recognised.
var ErrUnsupportedFormat = errors.New("unsupported changelog format")

// ErrParse indicates the changelog document could not be decoded.
var ErrParse = errors.New("parsing changelog")

// ErrInvalidChangeSet indicates a change set is missing required attributes
// or contains SQL that cannot be parsed.
var ErrInvalidChangeSet = errors.New("invalid change set")

// ErrDuplicateChangeSet indicates two change sets share an identity.
var ErrDuplicateChangeSet = errors.New("duplicate change set")

// ErrNonTransactional indicates a change set contains a statement Postgres
// refuses to run inside a transaction block.
var ErrNonTransactional = errors.New("statement cannot run inside a transaction")
