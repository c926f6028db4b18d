package interceptor

import (
	"context"
	"errors"
	"testing"
)

type recordingInterceptor struct {
	Base
	AppliesToAll

	name   string
	log    *[]string
	onReq  func(ctx context.Context, op *OpContext) Decision
	onResp func(ctx context.Context, op *OpContext, resp interface{}) interface{}
	onErr  func(ctx context.Context, op *OpContext, err error) error
}

func (r *recordingInterceptor) Name() string { return r.name }

func (r *recordingInterceptor) OnRequest(ctx context.Context, op *OpContext) Decision {
	*r.log = append(*r.log, r.name+":request")
	if r.onReq != nil {
		return r.onReq(ctx, op)
	}
	return Continue()
}

func (r *recordingInterceptor) OnResponse(ctx context.Context, op *OpContext, resp interface{}) interface{} {
	*r.log = append(*r.log, r.name+":response")
	if r.onResp != nil {
		return r.onResp(ctx, op, resp)
	}
	return resp
}

func (r *recordingInterceptor) OnError(ctx context.Context, op *OpContext, err error) error {
	*r.log = append(*r.log, r.name+":error")
	if r.onErr != nil {
		return r.onErr(ctx, op, err)
	}
	return err
}

func TestChainVisitsInOrderThenReverse(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log}
	chain := NewChain(a, b)

	op := NewOpContext(OpGet, "u1", "u1")
	resp, err := chain.Run(context.Background(), op, func(ctx context.Context) (interface{}, error) {
		log = append(log, "backend")
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp != "ok" {
		t.Errorf("resp = %v, want ok", resp)
	}

	want := []string{"a:request", "b:request", "backend", "b:response", "a:response"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestChainShortCircuitSkipsBackendAndLaterRequestHooks(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log, onReq: func(ctx context.Context, op *OpContext) Decision {
		return ShortCircuit("short-circuited")
	}}
	b := &recordingInterceptor{name: "b", log: &log}
	chain := NewChain(a, b)

	op := NewOpContext(OpGet, "u1", "u1")
	resp, err := chain.Run(context.Background(), op, func(ctx context.Context) (interface{}, error) {
		log = append(log, "backend")
		return "should not run", nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp != "short-circuited" {
		t.Errorf("resp = %v, want short-circuited", resp)
	}

	for _, entry := range log {
		if entry == "b:request" || entry == "backend" {
			t.Errorf("log = %v, should not contain %s after short-circuit", log, entry)
		}
	}
}

func TestChainErrorRunsErrorHooksInReverse(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log}
	chain := NewChain(a, b)

	wantErr := errors.New("backend failure")
	op := NewOpContext(OpGet, "u1", "u1")
	_, err := chain.Run(context.Background(), op, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	want := []string{"a:request", "b:request", "b:error", "a:error"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
}

type saveOnlyInterceptor struct {
	Base
	ran *bool
}

func (saveOnlyInterceptor) Name() string                        { return "save-only" }
func (saveOnlyInterceptor) Applies(kind OperationKind) bool      { return kind == OpSave }
func (s saveOnlyInterceptor) OnRequest(ctx context.Context, op *OpContext) Decision {
	*s.ran = true
	return Continue()
}

func TestChainSkipsInterceptorsThatDoNotApply(t *testing.T) {
	var ran bool
	chain := NewChain(saveOnlyInterceptor{ran: &ran})

	op := NewOpContext(OpGet, "u1", "u1")
	_, err := chain.Run(context.Background(), op, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran {
		t.Error("save-only interceptor should not run for a get operation")
	}
}
