package tracker

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Status is the coarse state of the automation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusSuccess, StatusError:
		return true
	}
	return false
}

// ErrInvalidRecord is returned when a record breaks the status invariants.
var ErrInvalidRecord = errors.New("invalid status record")

// Record is the single persisted status of the automation.
// LastRun is the end time of the most recently completed run.
// Message is only set for StatusError.
type Record struct {
	Status  Status     `json:"status"`
	LastRun *time.Time `json:"lastRun"`
	Message *string    `json:"message"`
}

// Idle returns the default record used when nothing has been persisted.
func Idle() Record {
	return Record{Status: StatusIdle}
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if !r.Status.Valid() {
		return errors.Wrapf(ErrInvalidRecord, "unknown status %q", r.Status)
	}
	if r.Message != nil && r.Status != StatusError {
		return errors.Wrapf(ErrInvalidRecord, "message set on %s record", r.Status)
	}
	return nil
}

// MessageText returns the message or "" when absent.
func (r Record) MessageText() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}
