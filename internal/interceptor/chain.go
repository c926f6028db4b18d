// Package interceptor implements the Interceptor Chain (spec.md §4.6): an
// ordered list of interceptors visited in order on the request phase and
// in reverse order on the response/error phase, in the style of the
// teacher's net/http middleware chain (infrastructure/middleware) adapted
// from a func(Handler) Handler wrapper to an explicit before/after hook
// pair since the chain must be able to short-circuit before a backend call
// even exists.
package interceptor

import (
	"context"
)

// OperationKind names the facade operation an interceptor chain is
// running, used for applicability filters and telemetry labels (spec.md
// §4.1, §4.6).
type OperationKind string

const (
	OpGet       OperationKind = "get"
	OpGetAll    OperationKind = "getAll"
	OpSave      OperationKind = "save"
	OpSaveAll   OperationKind = "saveAll"
	OpDelete    OperationKind = "delete"
	OpDeleteAll OperationKind = "deleteAll"
	OpSync      OperationKind = "sync"
)

// OpContext is the operation context the facade hands to the chain
// (spec.md §4.1 "operation context (operation kind, request value, attempt
// counter, metadata map)"). Request and Response are untyped because a
// single chain instance is shared across operations with different
// payload shapes (*T, []T, T, int, bool, ...).
type OpContext struct {
	Kind     OperationKind
	Request  interface{}
	Attempt  int
	Metadata map[string]interface{}

	// EntityID is set for single-entity operations (get/save/delete) and
	// nil for collection operations, mirroring the facade's error
	// attachment behavior (spec.md §7 "attaches the originating operation
	// kind and entity id").
	EntityID interface{}
}

// Decision is what onRequest returns (spec.md §4.6).
type Decision struct {
	kind     decisionKind
	response interface{}
	err      error
}

type decisionKind int

const (
	decisionContinue decisionKind = iota
	decisionContinueWithResponse
	decisionShortCircuit
	decisionError
)

// Continue proceeds to the next interceptor, and eventually the backend
// call, unmodified.
func Continue() Decision { return Decision{kind: decisionContinue} }

// ContinueWithResponse skips the backend call and uses resp as if it had
// come from the backend, but still runs subsequent interceptors'
// onRequest hooks (spec.md §4.6 "skip backend call, use this response").
func ContinueWithResponse(resp interface{}) Decision {
	return Decision{kind: decisionContinueWithResponse, response: resp}
}

// ShortCircuit terminates the request phase immediately and begins the
// response phase with resp, running onResponse only for interceptors
// already visited (spec.md §4.6).
func ShortCircuit(resp interface{}) Decision {
	return Decision{kind: decisionShortCircuit, response: resp}
}

// ErrorDecision terminates the chain and runs onError for interceptors
// already visited.
func ErrorDecision(err error) Decision {
	return Decision{kind: decisionError, err: err}
}

// Interceptor is a single chain link. Applies reports whether this
// interceptor runs for the given operation kind; embed AppliesToAll to
// accept every kind.
type Interceptor interface {
	Name() string
	Applies(kind OperationKind) bool
	OnRequest(ctx context.Context, op *OpContext) Decision
	OnResponse(ctx context.Context, op *OpContext, resp interface{}) interface{}
	OnError(ctx context.Context, op *OpContext, err error) error
}

// Base provides no-op hook implementations; concrete interceptors embed it
// and override only the hooks they need, in the teacher's style of
// partial middleware embedding (infrastructure/middleware's Defaults).
type Base struct{}

func (Base) OnResponse(ctx context.Context, op *OpContext, resp interface{}) interface{} {
	return resp
}

func (Base) OnError(ctx context.Context, op *OpContext, err error) error { return err }

// AppliesToAll reports true for every operation kind; embed alongside
// Base for interceptors with no applicability restriction.
type AppliesToAll struct{}

func (AppliesToAll) Applies(OperationKind) bool { return true }

// Chain runs an ordered interceptor list around a backend call.
type Chain struct {
	interceptors []Interceptor
}

// NewChain builds a Chain from interceptors in request-phase order.
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// Run drives the request phase forward through applicable interceptors,
// invokes call unless a decision already produced a response, then drives
// the response or error phase backward through the same interceptors
// (spec.md §4.6).
func (c *Chain) Run(ctx context.Context, op *OpContext, call func(context.Context) (interface{}, error)) (interface{}, error) {
	var (
		visited     []Interceptor
		hasResponse bool
		response    interface{}
	)

	for _, ic := range c.interceptors {
		if !ic.Applies(op.Kind) {
			continue
		}
		visited = append(visited, ic)

		d := ic.OnRequest(ctx, op)
		switch d.kind {
		case decisionContinue:
			continue
		case decisionContinueWithResponse:
			hasResponse, response = true, d.response
			continue
		case decisionShortCircuit:
			return c.runResponsePhase(ctx, op, visited, d.response), nil
		case decisionError:
			return nil, c.runErrorPhase(ctx, op, visited, d.err)
		}
	}

	if hasResponse {
		return c.runResponsePhase(ctx, op, visited, response), nil
	}
	resp, err := call(ctx)
	if err != nil {
		return nil, c.runErrorPhase(ctx, op, visited, err)
	}
	return c.runResponsePhase(ctx, op, visited, resp), nil
}

func (c *Chain) runResponsePhase(ctx context.Context, op *OpContext, visited []Interceptor, resp interface{}) interface{} {
	for i := len(visited) - 1; i >= 0; i-- {
		resp = visited[i].OnResponse(ctx, op, resp)
	}
	return resp
}

func (c *Chain) runErrorPhase(ctx context.Context, op *OpContext, visited []Interceptor, err error) error {
	for i := len(visited) - 1; i >= 0; i-- {
		err = visited[i].OnError(ctx, op, err)
	}
	return err
}

// NewOpContext builds an OpContext with an initialized metadata map.
func NewOpContext(kind OperationKind, request interface{}, entityID interface{}) *OpContext {
	return &OpContext{Kind: kind, Request: request, Metadata: make(map[string]interface{}), EntityID: entityID}
}
