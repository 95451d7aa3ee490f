// Package launcher starts the external automation and records its outcome.
//
// At most one run is active at a time. Within a process that is enforced
// by a mutex around the check-and-set of the status record; across
// processes by the tracker lock file.
package launcher

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/chr1sbest/runctl/internal/config"
	"github.com/chr1sbest/runctl/internal/logger"
	"github.com/chr1sbest/runctl/internal/notify"
	"github.com/chr1sbest/runctl/internal/tracker"
)

const (
	MsgStarted        = "Automation started. Check status for progress."
	MsgAlreadyRunning = "A run is already in progress."
	MsgInterrupted    = "run interrupted before completion"
)

// ErrShuttingDown is returned by Start after Shutdown has begun.
var ErrShuttingDown = errors.New("launcher is shutting down")

// StartResult is the reply to a start request.
type StartResult struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// Notifier receives every status transition.
type Notifier interface {
	Publish(ev notify.Event) error
}

// Launcher owns the single background automation run.
type Launcher struct {
	store    *tracker.Store
	log      logger.Logger
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	settings config.AutomationConfig
	active   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithNotifier publishes transitions to n.
func WithNotifier(n Notifier) Option {
	return func(l *Launcher) { l.notifier = n }
}

// WithClock overrides the clock used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) { l.now = now }
}

// New creates a launcher persisting to store and running settings.
func New(store *tracker.Store, settings config.AutomationConfig, log logger.Logger, opts ...Option) *Launcher {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Launcher{
		store:    store,
		log:      log.WithFields(logger.F(logger.FieldComponent, "launcher")),
		now:      time.Now,
		settings: settings.Clone(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins a run unless one is already in progress. A refused start
// is not an error; it is reported through StartResult.
func (l *Launcher) Start() (StartResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx.Err() != nil {
		return StartResult{}, ErrShuttingDown
	}
	if l.active {
		return StartResult{Started: false, Message: MsgAlreadyRunning}, nil
	}

	current, err := l.store.Load()
	if err != nil {
		return StartResult{}, errors.Wrap(err, "load status")
	}
	if current.Status == tracker.StatusRunning {
		return StartResult{Started: false, Message: MsgAlreadyRunning}, nil
	}

	runID := tracker.NewRunID()
	release, err := l.store.AcquireLock(runID)
	if errors.Is(err, tracker.ErrLockHeld) {
		// A lock carrying our own pid while no run is active was left by a
		// failed release; it is safe to take over.
		if holder, rerr := l.store.ReadLock(); rerr == nil && holder != nil && holder.PID == os.Getpid() && l.store.ClearLock() == nil {
			release, err = l.store.AcquireLock(runID)
		}
	}
	if err != nil {
		if errors.Is(err, tracker.ErrLockHeld) {
			l.log.Warn("start refused, lock held elsewhere", logger.F(logger.FieldError, err))
			return StartResult{Started: false, Message: MsgAlreadyRunning}, nil
		}
		return StartResult{}, errors.Wrap(err, "acquire run lock")
	}

	rec, err := l.store.MarkRunning()
	if err != nil {
		_ = release()
		return StartResult{}, errors.Wrap(err, "mark running")
	}

	l.active = true
	settings := l.settings.Clone()
	l.wg.Add(1)
	go l.run(runID, settings, release)

	l.publish(runID, rec)
	return StartResult{Started: true, Message: MsgStarted}, nil
}

func (l *Launcher) run(runID string, settings config.AutomationConfig, release func() error) {
	defer l.wg.Done()

	log := l.log.WithFields(logger.F(logger.FieldRunID, runID))
	log.Info("automation started",
		logger.F("command", strings.Join(settings.Command, " ")),
		logger.F("dir", settings.Dir))

	outcome := execute(l.ctx, settings)

	l.mu.Lock()
	rec, err := l.record(outcome)
	if relErr := release(); relErr != nil {
		log.Warn("failed to release run lock", logger.F(logger.FieldError, relErr))
	}
	l.active = false
	l.mu.Unlock()

	fields := []logger.Field{
		logger.F("outcome", outcome.Status.String()),
		logger.F(logger.FieldExitCode, outcome.ExitCode),
		logger.F(logger.FieldDurationMS, outcome.Duration.Milliseconds()),
	}
	if err != nil {
		log.Error("failed to persist run outcome", append(fields, logger.F(logger.FieldError, err))...)
		return
	}
	if outcome.IsSuccess() {
		log.Info("automation finished", fields...)
	} else {
		log.Warn("automation failed", append(fields, logger.F("message", outcome.Message))...)
	}
	l.publish(runID, rec)
}

func (l *Launcher) record(o Outcome) (tracker.Record, error) {
	if o.IsSuccess() {
		return l.store.MarkSuccess(l.now())
	}
	return l.store.MarkError(l.now(), o.Message)
}

// Recover repairs state left by a process that died mid-run: a stale lock
// file is removed and a record left "running" is marked as an error. It
// reports whether the record was rewritten.
func (l *Launcher) Recover() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return false, nil
	}
	previous, _ := l.store.ReadLock()
	if cleared, err := l.store.ClearStaleLock(); err != nil {
		return false, err
	} else if cleared {
		l.log.Warn("removed stale run lock", logger.F(logger.FieldFile, l.store.LockPath))
	}

	rec, err := l.store.Load()
	if err != nil {
		return false, errors.Wrap(err, "load status")
	}
	if rec.Status != tracker.StatusRunning {
		return false, nil
	}
	if holder, held := l.store.HeldByOther(); held {
		l.log.Info("run in progress in another process",
			logger.F(logger.FieldPID, holder.PID),
			logger.F(logger.FieldRunID, holder.RunID))
		return false, nil
	}

	runID := ""
	if previous != nil {
		runID = previous.RunID
	}
	if err := l.store.ClearLock(); err != nil {
		return false, errors.Wrap(err, "clear stale lock")
	}
	rec, err = l.store.MarkError(l.now(), MsgInterrupted)
	if err != nil {
		return false, errors.Wrap(err, "mark interrupted")
	}
	l.log.Warn("recovered interrupted run", logger.F(logger.FieldRunID, runID))
	l.publish(runID, rec)
	return true, nil
}

// Apply replaces the settings used by the next run. A run already in
// flight keeps the settings it started with.
func (l *Launcher) Apply(settings config.AutomationConfig) {
	l.mu.Lock()
	l.settings = settings.Clone()
	l.mu.Unlock()
}

// Settings returns a copy of the settings the next run will use.
func (l *Launcher) Settings() config.AutomationConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings.Clone()
}

// Active reports whether this launcher has a run in flight.
func (l *Launcher) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Wait blocks until the background run, if any, has finished.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

// Shutdown refuses further starts, cancels the active run and waits for
// its outcome to be recorded or for ctx to expire.
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.cancel()
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Launcher) publish(runID string, rec tracker.Record) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Publish(notify.NewEvent(runID, rec)); err != nil {
		l.log.Warn("failed to publish status event",
			logger.F(logger.FieldRunID, runID),
			logger.F(logger.FieldError, err))
	}
}
