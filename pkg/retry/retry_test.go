package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	errs "smugvault/pkg/errors"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	}, fastConfig(5))

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	wrapped := errs.New(errs.ErrorTypeServerError, "bad gateway")
	err := Do(func() error {
		calls++
		return wrapped
	}, fastConfig(3))

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, wrapped) {
		t.Errorf("final error %v should wrap the last failure", err)
	}
}

func TestDoDoesNotRetryFatalErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeAuth, "token revoked")
	}, fastConfig(5))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if got := errs.TypeOf(err); got != errs.ErrorTypeAuth {
		t.Errorf("error type = %v, want auth", got)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			calls++
			return errs.New(errs.ErrorTypeNetwork, "flaky")
		}, cfg)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoInvokesOnRetry(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Do(func() error {
		return errs.New(errs.ErrorTypeRateLimit, "throttled")
	}, cfg)

	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("OnRetry attempts = %v, want [1 2 3]", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeNetwork, "flaky")
		}
		return "payload", nil
	}, fastConfig(3))

	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != "payload" {
		t.Errorf("result = %q", got)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.New(errs.ErrorTypeNetwork, "x"), true},
		{"wrapped rate limit", fmt.Errorf("wrap: %w", errs.New(errs.ErrorTypeRateLimit, "x")), true},
		{"auth", errs.New(errs.ErrorTypeAuth, "x"), false},
		{"not found", errs.New(errs.ErrorTypeNotFound, "x"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"untyped", errors.New("boom"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DefaultRetryIf(c.err); got != c.want {
				t.Errorf("DefaultRetryIf = %v, want %v", got, c.want)
			}
		})
	}
}

func TestExponentialBackoffGrowthAndCap(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	if got := eb.NextDelay(1); got != 100*time.Millisecond {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := eb.NextDelay(3); got != 400*time.Millisecond {
		t.Errorf("attempt 3 = %v", got)
	}
	if got := eb.NextDelay(10); got != time.Second {
		t.Errorf("attempt 10 = %v, want capped at 1s", got)
	}
	if got := eb.NextDelay(0); got != 0 {
		t.Errorf("attempt 0 = %v, want 0", got)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}
	for i := 0; i < 50; i++ {
		d := eb.NextDelay(2)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 300ms]", d)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 25 * time.Millisecond}
	if got := cb.NextDelay(1); got != 25*time.Millisecond {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := cb.NextDelay(7); got != 25*time.Millisecond {
		t.Errorf("attempt 7 = %v", got)
	}
}

func TestRetrierWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(fastConfig(3)).WithContext(ctx)
	calls := 0
	err := r.Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "flaky")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if r.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts = %d", r.MaxAttempts())
	}
}
