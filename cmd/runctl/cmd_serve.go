package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chr1sbest/runctl/internal/banner"
	"github.com/chr1sbest/runctl/internal/config"
	"github.com/chr1sbest/runctl/internal/launcher"
	"github.com/chr1sbest/runctl/internal/logger"
	"github.com/chr1sbest/runctl/internal/notify"
	"github.com/chr1sbest/runctl/internal/server"
	"github.com/chr1sbest/runctl/internal/tracker"
)

// runShutdownTimeout bounds how long serve waits for an interrupted run
// to record its outcome.
const runShutdownTimeout = 15 * time.Second

var (
	serveListen   string
	serveNoBanner bool
	serveNoWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

Environment variables from a .env file in the working directory are loaded
before the config is read, so the config may reference them as ${VAR}.
Edits to the automation section of the config apply to the next run.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address, overrides the config")
	serveCmd.Flags().BoolVar(&serveNoBanner, "no-banner", false, "skip the startup banner")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload the config file on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := notify.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Warn("status events disabled", logger.F(logger.FieldError, err))
		publisher = notify.Nop{}
	}
	defer publisher.Close()

	store := tracker.NewStore(cfg.StatusFile, loc)
	l := launcher.New(store, cfg.Automation, log, launcher.WithNotifier(publisher))
	if recovered, err := l.Recover(); err != nil {
		return errors.Wrap(err, "recover status")
	} else if recovered {
		log.Warn("previous run did not finish; marked as error", logger.F(logger.FieldFile, store.Path))
	}

	if !serveNoWatch {
		stopWatch, err := watchAutomation(ctx, l, log)
		if err != nil {
			log.Warn("config reload disabled", logger.F(logger.FieldError, err))
		} else {
			defer stopWatch()
		}
	}

	if !serveNoBanner {
		banner.NewWithWriter(cmd.OutOrStdout()).Print(buildVersion(), cfg)
	}

	srv := server.New(store, l, log, cfg.CORSOrigins)
	serveErr := srv.Serve(ctx, cfg.Listen)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), runShutdownTimeout)
	defer cancel()
	if err := l.Shutdown(shutdownCtx); err != nil {
		log.Error("run did not stop in time", logger.F(logger.FieldError, err))
	}
	return serveErr
}

// watchAutomation applies automation changes from the config file to l.
// Other settings need a restart.
func watchAutomation(ctx context.Context, l *launcher.Launcher, log logger.Logger) (func(), error) {
	w, err := config.NewWatcher(config.NewLoader(configPath))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}

	log = log.WithFields(logger.F(logger.FieldComponent, "config"))
	go func() {
		for ev := range w.Events() {
			if ev.Error != nil {
				log.Warn("config reload failed, keeping previous settings",
					logger.F(logger.FieldFile, ev.Path),
					logger.F(logger.FieldError, ev.Error))
				continue
			}
			l.Apply(ev.Config.Automation)
			log.Info("automation settings reloaded",
				logger.F(logger.FieldFile, ev.Path),
				logger.F("command", strings.Join(ev.Config.Automation.Command, " ")))
		}
	}()
	return func() { _ = w.Stop() }, nil
}
