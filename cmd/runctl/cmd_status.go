package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chr1sbest/runctl/internal/config"
	"github.com/chr1sbest/runctl/internal/status"
	"github.com/chr1sbest/runctl/internal/tracker"
)

var (
	statusURL  string
	statusFile string
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current status record",
	Long: `Show the current status record.

By default the record is fetched from a running server. With --file the
status file is read directly, which works while the server is down.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", defaultServerURL, "base URL of the runctl server")
	statusCmd.Flags().StringVar(&statusFile, "file", "", "read this status file instead of asking the server")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw JSON record")
}

const defaultServerURL = "http://127.0.0.1:8000"

func runStatus(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	var rec tracker.Record
	if statusFile != "" {
		loc, err := statusLocation()
		if err != nil {
			return err
		}
		rec, err = tracker.NewStore(statusFile, loc).Load()
		if err != nil {
			return err
		}
	} else {
		rec, err = newClient(statusURL, log).Status(cmd.Context())
		if err != nil {
			return err
		}
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	status.NewWithWriter(cmd.OutOrStdout(), colorEnabled(cmd)).Render(rec)
	return nil
}

// statusLocation uses the configured timezone when a config file is
// present, falling back to the default zone.
func statusLocation() (*time.Location, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, err
	}
	return cfg.Location()
}

func colorEnabled(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && status.IsTerminal(f)
}
