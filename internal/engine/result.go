package engine

import "fmt"

// Status is the outcome class of one engine invocation.
type Status int

const (
	StatusUpToDate Status = iota
	StatusApplied
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up-to-date"
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of one invocation. It is never persisted.
//
// Count is the number of change sets applied by the call; for a failed call
// it is the number that stayed applied before the failure.
type Result struct {
	Status Status
	Count  int
	Err    error
}

// UpToDate reports that nothing was pending.
func UpToDate() Result { return Result{Status: StatusUpToDate} }

// Applied reports n change sets applied.
func Applied(n int) Result { return Result{Status: StatusApplied, Count: n} }

// Failed reports a failure after partial change sets had been applied.
func Failed(err error, partial int) Result {
	return Result{Status: StatusFailed, Count: partial, Err: err}
}

func (r Result) String() string {
	switch r.Status {
	case StatusApplied:
		return fmt.Sprintf("Applied(%d)", r.Count)
	case StatusFailed:
		return fmt.Sprintf("Failed(%v, partialApplyCount=%d)", r.Err, r.Count)
	default:
		return r.Status.String()
	}
}
