package tracker

import "errors"

// ErrChecksumMismatch indicates the recorded checksum differs from the declared one.
var ErrChecksumMismatch = errors.New("change set checksum mismatch")

// ErrTableCreation indicates the schema_changelog table could not be created.
var ErrTableCreation = errors.New("creating schema_changelog table")
