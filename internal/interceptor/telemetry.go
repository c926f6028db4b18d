package interceptor

import (
	"context"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/telemetry"
	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

type startTimeKey struct{}

// Telemetry records operation duration, success/failure, and errors via a
// telemetry.Reporter (spec.md §4.6). It reports no cache-hit/miss or sync
// events, and no other engine component calls the Reporter's CacheHit,
// CacheMiss or SyncEvent methods either.
type Telemetry struct {
	AppliesToAll

	reporter telemetry.Reporter
}

// NewTelemetry builds a Telemetry interceptor reporting to reporter.
func NewTelemetry(reporter telemetry.Reporter) *Telemetry {
	return &Telemetry{reporter: reporter}
}

func (t *Telemetry) Name() string { return "telemetry" }

func (t *Telemetry) OnRequest(ctx context.Context, op *OpContext) Decision {
	op.Metadata[telemetryStartKey] = time.Now()
	return Continue()
}

func (t *Telemetry) OnResponse(ctx context.Context, op *OpContext, resp interface{}) interface{} {
	t.report(op, true)
	return resp
}

func (t *Telemetry) OnError(ctx context.Context, op *OpContext, err error) error {
	t.report(op, false)
	if se := storeerrors.As(err); se != nil {
		t.reporter.Error(string(op.Kind), string(se.Code))
	} else {
		t.reporter.Error(string(op.Kind), string(storeerrors.CodeInternal))
	}
	return err
}

const telemetryStartKey = "telemetry.start"

func (t *Telemetry) report(op *OpContext, success bool) {
	start, ok := op.Metadata[telemetryStartKey].(time.Time)
	if !ok {
		return
	}
	t.reporter.OperationDuration(string(op.Kind), time.Since(start), success)
}
