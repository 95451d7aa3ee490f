package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var commit = "none"

var date = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the runctl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionLine())
	},
}

func unset(s, placeholder string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == placeholder
}

// buildVersion is the short form shown in the startup banner.
func buildVersion() string {
	if version != "dev" {
		return version
	}
	c, _ := buildMetadata()
	if c == "" {
		return "dev"
	}
	return "dev+" + c
}

// buildMetadata fills commit and date from VCS stamping when they were not
// set through ldflags. Empty strings mean unknown.
func buildMetadata() (c, d string) {
	c, d = strings.TrimSpace(commit), strings.TrimSpace(date)
	if unset(c, "none") {
		c = ""
	}
	if unset(d, "unknown") {
		d = ""
	}
	if c == "" || d == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				v := strings.TrimSpace(s.Value)
				switch {
				case s.Key == "vcs.revision" && c == "":
					c = v
				case s.Key == "vcs.time" && d == "":
					d = v
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return c, d
}

func versionLine() string {
	if version != "dev" {
		return fmt.Sprintf("runctl version %s", version)
	}

	c, d := buildMetadata()
	switch {
	case c == "" && d == "":
		return "runctl version dev"
	case c == "":
		return fmt.Sprintf("runctl version dev (built %s)", d)
	case d == "":
		return fmt.Sprintf("runctl version dev (commit %s)", c)
	}
	return fmt.Sprintf("runctl version dev (commit %s, built %s)", c, d)
}
