package interceptor

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Dedup is the request-coalescing interceptor (spec.md §4.6): concurrent
// duplicate in-flight operations, keyed by (operation kind, fingerprint of
// request), share one backend call. It is built on
// golang.org/x/sync/singleflight rather than a hand-rolled waiter map,
// matching SPEC_FULL's domain-stack wiring for this interceptor.
type Dedup struct {
	Base
	AppliesToAll

	group       singleflight.Group
	fingerprint func(op *OpContext) string
}

// NewDedup builds a Dedup interceptor. fingerprint computes the
// request-identity key; callers typically pass a function that calls
// query.Query.Fingerprint() for list operations or formats the entity id
// for single-id operations.
func NewDedup(fingerprint func(op *OpContext) string) *Dedup {
	return &Dedup{fingerprint: fingerprint}
}

func (d *Dedup) Name() string { return "dedup" }

// OnRequest does not short-circuit; coalescing happens by wrapping the
// backend call itself, which is why Dedup also implements WrapCall,
// invoked by the chain's caller (the facade) instead of going through
// OnRequest/OnResponse, since singleflight must wrap the exact call
// closure, not a response value already produced by an earlier hook.
func (d *Dedup) OnRequest(ctx context.Context, op *OpContext) Decision {
	return Continue()
}

// WrapCall wraps call so concurrent callers sharing the same key observe
// exactly one invocation and receive the same result (spec.md §4.6 "late
// callers await the in-flight result. On error, all waiters receive the
// same error.").
func (d *Dedup) WrapCall(op *OpContext, call func(context.Context) (interface{}, error)) func(context.Context) (interface{}, error) {
	key := fmt.Sprintf("%s:%s", op.Kind, d.key(op))
	return func(ctx context.Context) (interface{}, error) {
		v, err, _ := d.group.Do(key, func() (interface{}, error) {
			return call(ctx)
		})
		return v, err
	}
}

func (d *Dedup) key(op *OpContext) string {
	if d.fingerprint != nil {
		return d.fingerprint(op)
	}
	return fmt.Sprintf("%v", op.EntityID)
}
