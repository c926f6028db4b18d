package pendingchange

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures the queue's retry schedule for failed changes
// (spec.md §4.5 "Retry policy"). It mirrors the shape of the teacher's
// infrastructure/resilience.RetryConfig but computes a next-attempt time
// per change rather than driving a blocking retry loop, since pending
// changes must sit in a queue between attempts, not hold a goroutine.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
	Factor      float64
	Jitter      float64 // 0-1, mapped to backoff.RandomizationFactor
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the teacher's DefaultRetryConfig.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   100 * time.Millisecond,
		MaxAttempts: 5,
		Factor:      2.0,
		Jitter:      0.1,
		MaxDelay:    30 * time.Second,
	}
}

// NextDelay returns the delay before attempt number attempts+1, using the
// same exponential-backoff algorithm as cenkalti/backoff/v4's
// ExponentialBackOff so the computed schedule matches what an interceptor
// driving backoff.Retry directly would produce.
func (p RetryPolicy) NextDelay(attempts int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		bo.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		bo.MaxInterval = p.MaxDelay
	}
	if p.Factor > 0 {
		bo.Multiplier = p.Factor
	}
	bo.RandomizationFactor = p.Jitter
	bo.MaxElapsedTime = 0
	bo.Reset()

	delay := bo.NextBackOff()
	for i := 0; i < attempts; i++ {
		delay = bo.NextBackOff()
	}
	return delay
}

// Exhausted reports whether attempts has reached MaxAttempts.
func (p RetryPolicy) Exhausted(attempts int) bool {
	if p.MaxAttempts <= 0 {
		return false
	}
	return attempts >= p.MaxAttempts
}
