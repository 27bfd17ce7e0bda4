package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novaiq/backend/internal/retry"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	doErr := retry.DoWithDefaults(context.Background(), func() error {
		calls++
		return nil
	})

	if doErr != nil {
		t.Errorf("Do() error = %v", doErr)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDo_RetriesTransientError(t *testing.T) {
	t.Parallel()

	cfg := retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	doErr := retry.Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if doErr != nil {
		t.Errorf("Do() error = %v", doErr)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("invalid api key")

	calls := 0
	doErr := retry.Do(context.Background(), retry.Config{InitialDelay: time.Millisecond}, func() error {
		calls++
		return permanent
	})

	if !errors.Is(doErr, permanent) {
		t.Errorf("Do() error = %v, want %v", doErr, permanent)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	cfg := retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}

	doErr := retry.Do(context.Background(), cfg, func() error {
		return errors.New("i/o timeout")
	})

	if !errors.Is(doErr, retry.ErrMaxAttemptsExceeded) {
		t.Errorf("Do() error = %v, want ErrMaxAttemptsExceeded", doErr)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doErr := retry.DoWithDefaults(ctx, func() error {
		return errors.New("connection reset")
	})

	if !errors.Is(doErr, retry.ErrContextCancelled) {
		t.Errorf("Do() error = %v, want ErrContextCancelled", doErr)
	}
}

func TestDefaultIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: errors.New("request Timeout exceeded"), want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "permanent", err: errors.New("401 unauthorized"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := retry.DefaultIsRetryable(tt.err); got != tt.want {
				t.Errorf("DefaultIsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
