package interceptor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

// RetryConfig configures the retry interceptor, mirroring the teacher's
// infrastructure/resilience.RetryConfig.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryConfig mirrors the teacher's DefaultRetryConfig.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second, Multiplier: 2.0, Jitter: 0.1}
}

// Retry applies exponential backoff to idempotent reads and configured
// idempotent writes (spec.md §4.6). Unlike Dedup, Retry wraps the backend
// call directly (via WrapCall) since retrying requires re-invoking the
// call, not replaying a decision already made in OnRequest.
type Retry struct {
	Base

	cfg         RetryConfig
	idempotent  map[OperationKind]bool
	isRetryable func(err error) bool
}

// NewRetry builds a Retry interceptor. idempotentKinds lists the
// operation kinds it applies to; spec.md §4.6 names "idempotent reads and
// ... configured idempotent writes" — writes are opt-in because a naive
// retry of a non-idempotent write could double-apply it.
func NewRetry(cfg RetryConfig, idempotentKinds ...OperationKind) *Retry {
	idx := make(map[OperationKind]bool, len(idempotentKinds))
	for _, k := range idempotentKinds {
		idx[k] = true
	}
	return &Retry{cfg: cfg, idempotent: idx, isRetryable: defaultRetryable}
}

func defaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	se := storeerrors.As(err)
	if se == nil {
		return true
	}
	switch se.Code {
	case storeerrors.CodeNetwork, storeerrors.CodeTimeout, storeerrors.CodeCircuitOpen:
		return true
	default:
		return false
	}
}

func (r *Retry) Name() string { return "retry" }

func (r *Retry) Applies(kind OperationKind) bool { return r.idempotent[kind] }

func (r *Retry) OnRequest(ctx context.Context, op *OpContext) Decision { return Continue() }

// WrapCall retries call with exponential backoff using
// cenkalti/backoff/v4, matching the teacher's resilience.Retry helper
// almost line for line.
func (r *Retry) WrapCall(op *OpContext, call func(context.Context) (interface{}, error)) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		cfg := r.cfg
		if cfg.MaxAttempts <= 0 {
			cfg.MaxAttempts = 1
		}

		bo := backoff.NewExponentialBackOff()
		if cfg.InitialDelay > 0 {
			bo.InitialInterval = cfg.InitialDelay
		}
		if cfg.MaxDelay > 0 {
			bo.MaxInterval = cfg.MaxDelay
		}
		if cfg.Multiplier > 0 {
			bo.Multiplier = cfg.Multiplier
		}
		bo.RandomizationFactor = cfg.Jitter
		bo.MaxElapsedTime = 0

		maxRetries := uint64(cfg.MaxAttempts - 1)
		withMax := backoff.WithMaxRetries(bo, maxRetries)
		withCtx := backoff.WithContext(withMax, ctx)

		var result interface{}
		err := backoff.Retry(func() error {
			op.Attempt++
			v, err := call(ctx)
			if err != nil {
				if !r.isRetryable(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			result = v
			return nil
		}, withCtx)
		return result, err
	}
}
