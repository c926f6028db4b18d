package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

func TestRetryAppliesOnlyToConfiguredKinds(t *testing.T) {
	r := NewRetry(DefaultRetryConfig(), OpGet)
	if !r.Applies(OpGet) {
		t.Error("Retry should apply to OpGet")
	}
	if r.Applies(OpSave) {
		t.Error("Retry should not apply to OpSave (not configured as idempotent)")
	}
}

func TestRetryRetriesOnNetworkErrorThenSucceeds(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2, Jitter: 0}
	r := NewRetry(cfg, OpGet)

	var mu sync.Mutex
	attempts := 0
	op := NewOpContext(OpGet, nil, "u1")
	wrapped := r.WrapCall(op, func(ctx context.Context) (interface{}, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return nil, storeerrors.NetworkErr(nil)
		}
		return "ok", nil
	})

	got, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if got != "ok" {
		t.Errorf("got = %v, want ok", got)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryDoesNotRetryNonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2, Jitter: 0}
	r := NewRetry(cfg, OpGet)

	attempts := 0
	op := NewOpContext(OpGet, nil, "u1")
	wrapped := r.WrapCall(op, func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, storeerrors.ValidationErr("bad input")
	})

	_, err := wrapped(context.Background())
	if err == nil {
		t.Fatal("expected validation error to propagate")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry for non-retryable error)", attempts)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2, Jitter: 0}
	r := NewRetry(cfg, OpGet)

	attempts := 0
	op := NewOpContext(OpGet, nil, "u1")
	wrapped := r.WrapCall(op, func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, storeerrors.NetworkErr(nil)
	})

	_, err := wrapped(context.Background())
	if err == nil {
		t.Fatal("expected final failure to propagate")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (MaxAttempts)", attempts)
	}
}
