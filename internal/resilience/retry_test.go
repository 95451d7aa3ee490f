package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"
)

func fastBackoff(retries int) Backoff {
	return Backoff{
		MaxRetries: retries,
		InitDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastBackoff(3), func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesConnectionRefused(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastBackoff(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &netOpError{syscall.ECONNREFUSED}
		}
		return nil
	}, nil)

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	want := Transient(errors.New("still down"))
	err := Do(context.Background(), fastBackoff(2), func(ctx context.Context) error {
		calls++
		return want
	}, nil)

	if err != want {
		t.Errorf("expected %v, got %v", want, err)
	}
	// Initial call + 2 retries = 3 calls
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	want := errors.New("HTTP 500")
	err := Do(context.Background(), fastBackoff(3), func(ctx context.Context) error {
		calls++
		return want
	}, nil)

	if err != want {
		t.Errorf("expected %v, got %v", want, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelledReturnsLastError(t *testing.T) {
	b := fastBackoff(5)
	b.InitDelay = time.Second
	b.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	refused := &netOpError{syscall.ECONNREFUSED}
	start := time.Now()
	err := Do(ctx, b, func(ctx context.Context) error { return refused }, nil)

	if err != refused {
		t.Errorf("expected last attempt error, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation did not interrupt the wait")
	}
}

func TestDo_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Do(ctx, fastBackoff(1), func(ctx context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected context.Canceled without calling fn, got %v (called=%v)", err, called)
	}
}

func TestDo_OnRetry(t *testing.T) {
	calls := 0
	var retries []int
	err := Do(context.Background(), fastBackoff(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("transient"))
		}
		return nil
	}, func(retry int, err error, delay time.Duration) {
		retries = append(retries, retry)
		if delay <= 0 {
			t.Errorf("retry %d: non-positive delay %v", retry, delay)
		}
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("unexpected retry numbers %v", retries)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{InitDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Multiplier: 2.0}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := b.delay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	b := Backoff{InitDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0, Jitter: 0.5}
	for i := 0; i < 100; i++ {
		d := b.delay(0)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside [50ms, 150ms]", d)
		}
	}
}

// netOpError mimics the wrapping net.Dial applies to syscall errors.
type netOpError struct{ err error }

func (e *netOpError) Error() string { return "dial tcp: " + e.err.Error() }
func (e *netOpError) Unwrap() error { return e.err }
