package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// Store persists the status record as a JSON file. A lock file next to it
// guards against two processes running the automation at once.
type Store struct {
	Path     string
	LockPath string

	loc *time.Location
}

// NewStore returns a store for the record at path. Timestamps are written
// in loc; nil means UTC.
func NewStore(path string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		Path:     path,
		LockPath: path + ".lock",
		loc:      loc,
	}
}

// Load returns the persisted record. A missing or corrupt file yields the
// idle record.
func (s *Store) Load() (Record, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Idle(), nil
		}
		return Idle(), errors.Wrap(err, "read status file")
	}

	rec := Idle()
	if err := json.Unmarshal(b, &rec); err != nil {
		return Idle(), nil
	}
	if rec.Status == "" {
		rec.Status = StatusIdle
	}
	if !rec.Status.Valid() {
		return Idle(), nil
	}
	if rec.Status != StatusError {
		rec.Message = nil
	}
	return rec, nil
}

// Save overwrites the record.
func (s *Store) Save(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create status directory")
		}
	}
	if err := writeJSONAtomic(s.Path, rec); err != nil {
		return errors.Wrap(err, "write status file")
	}
	return nil
}

// MarkRunning records a run in progress. The previous LastRun is kept.
func (s *Store) MarkRunning() (Record, error) {
	prev, err := s.Load()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Status: StatusRunning, LastRun: prev.LastRun}
	return rec, s.Save(rec)
}

// MarkSuccess records a run that finished cleanly at the given time.
func (s *Store) MarkSuccess(at time.Time) (Record, error) {
	ts := s.stamp(at)
	rec := Record{Status: StatusSuccess, LastRun: &ts}
	return rec, s.Save(rec)
}

// MarkError records a failed run that ended at the given time.
func (s *Store) MarkError(at time.Time, msg string) (Record, error) {
	ts := s.stamp(at)
	rec := Record{Status: StatusError, LastRun: &ts, Message: &msg}
	return rec, s.Save(rec)
}

func (s *Store) stamp(t time.Time) time.Time {
	return t.In(s.loc).Truncate(time.Second)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
