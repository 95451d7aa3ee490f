package status

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/chr1sbest/runctl/internal/tracker"
)

func TestRenderIdle(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, false).Render(tracker.Idle())

	out := buf.String()
	if !strings.Contains(out, "○ idle") || !strings.Contains(out, "last run: never") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("color disabled but escape codes written:\n%s", out)
	}
}

func TestRenderErrorWithMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithWriter(&buf, false)
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	w.now = func() time.Time { return at.Add(90 * time.Minute) }

	msg := "Traceback\nValueError: bad"
	w.Render(tracker.Record{Status: tracker.StatusError, LastRun: &at, Message: &msg})

	out := buf.String()
	for _, want := range []string{"✗ error", "2026-01-01T09:00:00+09:00", "(1h ago)", "    Traceback", "    ValueError: bad"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderColor(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, true).Render(tracker.Record{Status: tracker.StatusRunning})
	if !strings.HasPrefix(buf.String(), cyan+bold+"● running"+reset) {
		t.Fatalf("expected colored badge, got %q", buf.String())
	}
}

func TestStarted(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithWriter(&buf, false)
	w.Started(true, "go")
	w.Started(false, "busy")
	if buf.String() != "▶ go\n⏳ busy\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestHumanize(t *testing.T) {
	tests := map[time.Duration]string{
		5 * time.Second: "5s",
		3 * time.Minute: "3m",
		5 * time.Hour:   "5h",
		72 * time.Hour:  "3d",
		47 * time.Hour:  "47h",
	}
	for d, want := range tests {
		if got := humanize(d); got != want {
			t.Errorf("humanize(%v) = %q, want %q", d, got, want)
		}
	}
}
