package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/chr1sbest/runctl/internal/config"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the automation itself has exited or been killed.
const waitDelay = 5 * time.Second

// captureLimit caps how much of each stream is kept in memory.
const captureLimit = 64 << 10

func execute(ctx context.Context, a config.AutomationConfig) Outcome {
	start := time.Now()

	if timeout := a.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if len(a.Command) == 0 {
		return Outcome{Status: OutcomeStartFailed, ExitCode: -1, Message: "failed to start automation: no command configured"}
	}

	cmd := exec.CommandContext(ctx, a.Command[0], a.Command[1:]...)
	cmd.Dir = a.Dir
	cmd.Env = mergeEnv(os.Environ(), a.Env)
	cmd.WaitDelay = waitDelay
	// Run in its own process group so cancellation also reaches helpers
	// the automation spawned (browsers, drivers).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}

	stdout := &tailBuffer{limit: captureLimit}
	stderr := &tailBuffer{limit: captureLimit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	o := Outcome{Duration: time.Since(start), ExitCode: -1}
	if cmd.ProcessState != nil {
		o.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil || (errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success()) {
		o.Status = OutcomeSuccess
		return o
	}

	diag := diagnostic(stdout.String(), stderr.String(), a.GetMaxMessageBytes())
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		o.Status = OutcomeTimedOut
		o.Message = joinMessage(fmt.Sprintf("timed out after %s", a.GetTimeout()), diag)
	case ctx.Err() != nil:
		o.Status = OutcomeInterrupted
		o.Message = joinMessage(fmt.Sprintf("run interrupted: %v", ctx.Err()), diag)
	case errors.As(err, &exitErr):
		o.Status = OutcomeFailed
		o.Message = diag
		if o.Message == "" {
			o.Message = fmt.Sprintf("Exit code %d", o.ExitCode)
		}
	default:
		o.Status = OutcomeStartFailed
		o.Message = fmt.Sprintf("failed to start automation: %v", err)
	}
	return o
}

// diagnostic picks stderr, falling back to stdout, and keeps the tail.
func diagnostic(stdout, stderr string, max int) string {
	text := strings.TrimSpace(stderr)
	if text == "" {
		text = strings.TrimSpace(stdout)
	}
	return tail(text, max)
}

// tail returns at most max bytes from the end of s without splitting a rune.
func tail(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := len(s) - max
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

func joinMessage(head, diag string) string {
	if diag == "" {
		return head
	}
	return head + "\n" + diag
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
