package tracker

import (
	"encoding/json"
	"os"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
)

// Lock is the content of the lock file held while a run is in flight.
type Lock struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	RunID     string    `json:"run_id"`
}

// ErrLockHeld is returned by AcquireLock while a live process holds the lock.
var ErrLockHeld = errors.New("automation lock is held")

// AcquireLock takes the run lock for runID. The returned func releases it.
// A lock whose holder is dead, or whose content cannot be parsed, is
// replaced.
func (s *Store) AcquireLock(runID string) (func() error, error) {
	return s.acquireLock(runID, true)
}

func (s *Store) acquireLock(runID string, retryStale bool) (func() error, error) {
	pid := os.Getpid()

	l := Lock{PID: pid, StartedAt: time.Now(), RunID: runID}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(s.LockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "create lock file")
		}
		existing, stale := s.staleLock()
		if stale && retryStale && os.Remove(s.LockPath) == nil {
			return s.acquireLock(runID, false)
		}
		if existing != nil {
			return nil, errors.Wrapf(ErrLockHeld, "by pid %d (run_id=%s)", existing.PID, existing.RunID)
		}
		return nil, errors.Wrap(ErrLockHeld, "lock file exists")
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(s.LockPath)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(s.LockPath)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(s.LockPath)
		return nil, err
	}

	release := func() error {
		err := os.Remove(s.LockPath)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return release, nil
}

// ReadLock returns the current lock, or nil when no lock file exists.
func (s *Store) ReadLock() (*Lock, error) {
	b, err := os.ReadFile(s.LockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var l Lock
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, errors.Wrap(err, "parse lock file")
	}
	return &l, nil
}

// staleLock inspects an existing lock file. It is stale when its holder is
// dead or when it carries no usable pid (empty, truncated or corrupt). The
// parsed lock is returned only when it names a pid.
func (s *Store) staleLock() (*Lock, bool) {
	l, err := s.ReadLock()
	if err != nil {
		return nil, true
	}
	if l == nil {
		return nil, false
	}
	if l.PID <= 0 {
		return nil, true
	}
	return l, !processAlive(l.PID)
}

// ClearStaleLock removes the lock file when staleLock considers it stale
// and reports whether it did.
func (s *Store) ClearStaleLock() (bool, error) {
	if _, stale := s.staleLock(); !stale {
		return false, nil
	}
	if err := s.ClearLock(); err != nil {
		return false, errors.Wrap(err, "remove stale lock")
	}
	return true, nil
}

// HeldByOther reports whether a live process other than this one holds
// the lock.
func (s *Store) HeldByOther() (*Lock, bool) {
	l, err := s.ReadLock()
	if err != nil || l == nil || l.PID <= 0 {
		return l, false
	}
	if l.PID == os.Getpid() {
		return l, false
	}
	return l, processAlive(l.PID)
}

// ClearLock removes the lock file regardless of holder.
func (s *Store) ClearLock() error {
	err := os.Remove(s.LockPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func processAlive(pid int) bool {
	// On unix, signal 0 checks existence/permission.
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
