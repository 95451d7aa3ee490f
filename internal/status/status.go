// Package status renders a status record for the terminal.
package status

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chr1sbest/runctl/internal/tracker"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	red    = "\033[31m"
)

// Writer prints status records, optionally colored.
type Writer struct {
	w     io.Writer
	color bool
	now   func() time.Time
}

// NewWithWriter creates a writer with a custom output.
func NewWithWriter(w io.Writer, color bool) *Writer {
	return &Writer{w: w, color: color, now: time.Now}
}

// Render writes a badge line, the last run and any error message.
func (s *Writer) Render(rec tracker.Record) {
	fmt.Fprintln(s.w, s.badge(rec.Status))

	last := "never"
	if rec.LastRun != nil {
		last = rec.LastRun.Format(time.RFC3339)
		if ago := s.now().Sub(*rec.LastRun); ago >= 0 {
			last += " " + s.paint(dim, "("+humanize(ago)+" ago)")
		}
	}
	fmt.Fprintf(s.w, "  last run: %s\n", last)

	if msg := rec.MessageText(); msg != "" {
		fmt.Fprintln(s.w, "  message:")
		for _, line := range strings.Split(msg, "\n") {
			fmt.Fprintf(s.w, "    %s\n", s.paint(dim, line))
		}
	}
}

// Started prints the reply to a run request.
func (s *Writer) Started(started bool, message string) {
	if started {
		fmt.Fprintf(s.w, "%s %s\n", s.paint(green+bold, "▶"), message)
		return
	}
	fmt.Fprintf(s.w, "%s %s\n", s.paint(yellow+bold, "⏳"), message)
}

func (s *Writer) badge(st tracker.Status) string {
	switch st {
	case tracker.StatusRunning:
		return s.paint(cyan+bold, "● running")
	case tracker.StatusSuccess:
		return s.paint(green+bold, "✓ success")
	case tracker.StatusError:
		return s.paint(red+bold, "✗ error")
	default:
		return s.paint(dim, "○ idle")
	}
}

func (s *Writer) paint(code, text string) string {
	if !s.color {
		return text
	}
	return code + text + reset
}

func humanize(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// IsTerminal reports whether f is a character device and NO_COLOR is unset.
func IsTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
