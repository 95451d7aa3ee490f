package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/chr1sbest/runctl/internal/config"
	"github.com/chr1sbest/runctl/internal/logger"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "runctl",
	Short: "Trigger a local automation over HTTP and track its status",
	Long: `runctl runs one configured automation command in the background and
records whether the last run succeeded.

Commands:
  serve    Start the HTTP server (GET /api/status, POST /api/run)
  status   Show the current status record
  run      Ask a running server to start the automation
  version  Show the runctl version

Examples:
  runctl serve --config runctl.json
  runctl run
  runctl status --file automation_status.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "runctl.json", "path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	rootCmd.Version = versionLine()
	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		os.Exit(exitCode(err))
	}
}

// exitError carries a process exit code through cobra. An empty msg means
// the command already reported the problem.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return 1
}

func newLogger() (*logger.ZapLogger, error) {
	lvl, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logger.New(lvl, logJSON), nil
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(configPath).LoadAndValidate()
}
