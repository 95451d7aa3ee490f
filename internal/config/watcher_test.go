package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, configPath string) *Watcher {
	t.Helper()
	watcher, err := NewWatcher(NewLoader(configPath))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Stop() })
	return watcher
}

func waitEvent(t *testing.T, w *Watcher) ConfigEvent {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config event")
	}
	return ConfigEvent{}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "runctl.json")
	if err := os.WriteFile(configPath, []byte(`{"automation": {"command": ["first"]}}`), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	watcher := startWatcher(t, configPath)
	if got := watcher.Current().Automation.Command[0]; got != "first" {
		t.Fatalf("initial config not loaded, command=%q", got)
	}

	if err := os.WriteFile(configPath, []byte(`{"automation": {"command": ["second"]}}`), 0644); err != nil {
		t.Fatalf("failed to write updated config: %v", err)
	}

	ev := waitEvent(t, watcher)
	if ev.Error != nil {
		t.Fatalf("unexpected error: %v", ev.Error)
	}
	if ev.Config == nil || ev.Config.Automation.Command[0] != "second" {
		t.Fatalf("expected reloaded command, got %+v", ev.Config)
	}
	if watcher.Current().Automation.Command[0] != "second" {
		t.Error("Current should reflect the reload")
	}
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "runctl.json")
	if err := os.WriteFile(configPath, []byte(`{"automation": {"command": ["good"]}}`), 0644); err != nil {
		t.Fatal(err)
	}

	watcher := startWatcher(t, configPath)

	if err := os.WriteFile(configPath, []byte(`{"automation": {"command": []}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, watcher)
	if ev.Error == nil {
		t.Fatal("expected reload error for invalid config")
	}
	if watcher.Current().Automation.Command[0] != "good" {
		t.Error("invalid reload must not replace the current config")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "runctl.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	watcher := startWatcher(t, configPath)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-watcher.Events():
		t.Fatalf("unexpected event for sibling file: %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}
