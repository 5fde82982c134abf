package lifecycle

import "errors"

// ErrStartupAborted wraps every Start failure; the host must not begin serving.
var ErrStartupAborted = errors.New("startup aborted: database schema is not up to date")
