package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/chr1sbest/runctl/internal/config"
)

// ANSI color codes
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	blue  = "\033[34m"
	cyan  = "\033[36m"
)

// Box drawing characters
const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
	arrow       = "→"
)

// Banner prints the server startup box.
type Banner struct {
	writer io.Writer
	width  int
}

// New creates a new Banner that writes to stdout
func New() *Banner {
	return &Banner{writer: os.Stdout, width: 60}
}

// NewWithWriter creates a Banner with a custom writer (for testing)
func NewWithWriter(w io.Writer) *Banner {
	return &Banner{writer: w, width: 60}
}

// Print displays the startup banner with config information.
func (b *Banner) Print(version string, cfg *config.Config) {
	b.border(topLeft, topRight)
	b.line(fmt.Sprintf("%s%srunctl%s %s%s%s", bold, blue, reset, dim, version, reset),
		"runctl "+version)
	b.border(vertical, vertical)

	b.row("listen", cfg.Listen)
	b.row("status", cfg.StatusFile)
	b.row("command", strings.Join(cfg.Automation.Command, " "))
	if cfg.Automation.Dir != "" && cfg.Automation.Dir != "." {
		b.row("dir", cfg.Automation.Dir)
	}
	if t := cfg.Automation.GetTimeout(); t > 0 {
		b.row("timeout", t.String())
	}
	if cfg.NATSURL != "" {
		b.row("events", cfg.NATSSubject)
	}

	b.border(bottomLeft, bottomRight)
	fmt.Fprintln(b.writer)
}

func (b *Banner) row(key, value string) {
	plain := fmt.Sprintf("%s %-8s %s", arrow, key, value)
	if max := b.width - 4; visualLen(plain) > max {
		value = truncate(value, visualLen(value)-(visualLen(plain)-max))
		plain = fmt.Sprintf("%s %-8s %s", arrow, key, value)
	}
	styled := fmt.Sprintf("%s%s%s %s%-8s%s %s", cyan, arrow, reset, dim, key, reset, value)
	b.line(styled, plain)
}

// line writes styled content padded by the width of its plain rendering.
func (b *Banner) line(styled, plain string) {
	padding := b.width - visualLen(plain) - 4
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(b.writer, "%s%s%s  %s%s%s%s%s\n", dim, vertical, reset, styled, strings.Repeat(" ", padding), dim, vertical, reset)
}

func (b *Banner) border(left, right string) {
	fmt.Fprintf(b.writer, "%s%s%s%s%s\n", dim, left, strings.Repeat(horizontal, b.width-2), right, reset)
}

// visualLen returns the number of runes, which is the column count for
// the box and arrow glyphs used here.
func visualLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if n <= 3 {
		return "..."
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
