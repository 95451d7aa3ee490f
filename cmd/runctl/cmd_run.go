package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/chr1sbest/runctl/internal/status"
)

// exitRefused is returned when the server declined to start a run.
const exitRefused = 2

var (
	runURL  string
	runJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ask a running server to start the automation",
	Long: `Ask a running server to start the automation.

Exits 0 when a run was started and 2 when one was already in progress.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", defaultServerURL, "base URL of the runctl server")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the raw JSON reply")
}

func runRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	res, err := newClient(runURL, log).Run(cmd.Context())
	if err != nil {
		return err
	}

	if runJSON {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
			return err
		}
	} else {
		status.NewWithWriter(cmd.OutOrStdout(), colorEnabled(cmd)).Started(res.Started, res.Message)
	}
	if !res.Started {
		return &exitError{code: exitRefused}
	}
	return nil
}
