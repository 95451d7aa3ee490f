package launcher

import "time"

// Outcome is the result of one automation run.
type Outcome struct {
	Status   OutcomeStatus
	ExitCode int
	// Message carries the diagnostic text recorded for non-success outcomes.
	Message  string
	Duration time.Duration
}

// OutcomeStatus represents the type of run outcome.
type OutcomeStatus int

const (
	// OutcomeSuccess means the process exited 0.
	OutcomeSuccess OutcomeStatus = iota

	// OutcomeFailed means the process exited non-zero.
	OutcomeFailed

	// OutcomeTimedOut means the configured timeout killed the process.
	OutcomeTimedOut

	// OutcomeInterrupted means shutdown cancelled the run.
	OutcomeInterrupted

	// OutcomeStartFailed means the process could not be started at all.
	OutcomeStartFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeStartFailed:
		return "start_failed"
	default:
		return "unknown"
	}
}

// IsSuccess returns true if the run succeeded.
func (o Outcome) IsSuccess() bool {
	return o.Status == OutcomeSuccess
}
