package tracker

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireLockBlocksSecondAcquire(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "status.json"), nil)

	release, err := s.AcquireLock("test-run")
	if err != nil {
		t.Fatalf("AcquireLock error: %v", err)
	}
	defer func() { _ = release() }()

	if _, err := s.AcquireLock("other-run"); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	if err := release(); err != nil {
		t.Fatalf("release error: %v", err)
	}

	if _, err := s.AcquireLock("third-run"); err != nil {
		t.Fatalf("expected AcquireLock after release to succeed, got: %v", err)
	}
}

func TestAcquireLockReplacesStaleLock(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "status.json"), nil)

	writeLock(t, s.LockPath, Lock{PID: deadPID(t), StartedAt: time.Now(), RunID: "crashed"})

	release, err := s.AcquireLock("fresh")
	if err != nil {
		t.Fatalf("expected stale lock to be replaced, got %v", err)
	}
	defer func() { _ = release() }()

	l, err := s.ReadLock()
	if err != nil {
		t.Fatalf("ReadLock: %v", err)
	}
	if l.RunID != "fresh" || l.PID != os.Getpid() {
		t.Fatalf("unexpected lock contents: %+v", l)
	}
}

func TestAcquireLockReplacesUnreadableLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"truncated json", `{"pid": 12`},
		{"no pid", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewStore(filepath.Join(dir, "status.json"), nil)
			if err := os.WriteFile(s.LockPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			release, err := s.AcquireLock("fresh")
			if err != nil {
				t.Fatalf("expected unreadable lock to be replaced, got %v", err)
			}
			defer func() { _ = release() }()

			l, err := s.ReadLock()
			if err != nil {
				t.Fatalf("ReadLock: %v", err)
			}
			if l.RunID != "fresh" {
				t.Fatalf("unexpected lock contents: %+v", l)
			}
		})
	}
}

func TestAcquireLockHeldErrorNamesHolder(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "status.json"), nil)
	writeLock(t, s.LockPath, Lock{PID: os.Getpid(), RunID: "holder"})

	_, err := s.AcquireLock("second")
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if !strings.Contains(err.Error(), "run_id=holder") {
		t.Fatalf("error should name the holder: %v", err)
	}
}

func TestClearStaleLock(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "status.json"), nil)

	if cleared, err := s.ClearStaleLock(); err != nil || cleared {
		t.Fatalf("missing lock: cleared=%v err=%v", cleared, err)
	}

	writeLock(t, s.LockPath, Lock{PID: os.Getpid(), RunID: "live"})
	if cleared, err := s.ClearStaleLock(); err != nil || cleared {
		t.Fatalf("live lock: cleared=%v err=%v", cleared, err)
	}
	if _, err := os.Stat(s.LockPath); err != nil {
		t.Fatalf("live lock should be kept: %v", err)
	}

	for _, content := range [][]byte{nil, []byte("not json")} {
		if err := os.WriteFile(s.LockPath, content, 0644); err != nil {
			t.Fatal(err)
		}
		if cleared, err := s.ClearStaleLock(); err != nil || !cleared {
			t.Fatalf("unreadable lock %q: cleared=%v err=%v", content, cleared, err)
		}
		if _, err := os.Stat(s.LockPath); !os.IsNotExist(err) {
			t.Fatalf("unreadable lock should be removed, stat err=%v", err)
		}
	}

	writeLock(t, s.LockPath, Lock{PID: deadPID(t), RunID: "dead"})
	if cleared, err := s.ClearStaleLock(); err != nil || !cleared {
		t.Fatalf("dead lock: cleared=%v err=%v", cleared, err)
	}
}

func TestHeldByOther(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "status.json"), nil)

	if _, held := s.HeldByOther(); held {
		t.Fatal("no lock file should not count as held")
	}

	writeLock(t, s.LockPath, Lock{PID: os.Getpid(), RunID: "self"})
	if _, held := s.HeldByOther(); held {
		t.Fatal("own pid should not count as another holder")
	}

	writeLock(t, s.LockPath, Lock{PID: deadPID(t), RunID: "dead"})
	if _, held := s.HeldByOther(); held {
		t.Fatal("dead pid should not count as held")
	}

	if err := s.ClearLock(); err != nil {
		t.Fatalf("ClearLock: %v", err)
	}
	if err := s.ClearLock(); err != nil {
		t.Fatalf("ClearLock on missing file should be a no-op: %v", err)
	}
}

func writeLock(t *testing.T, path string, l Lock) {
	t.Helper()
	b, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
}

// deadPID returns the pid of a process that has already exited and been reaped.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run true: %v", err)
	}
	return cmd.Process.Pid
}
