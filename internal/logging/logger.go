// Package logging provides structured logging for the store engine,
// adapted from the service_layer project's infrastructure/logging package:
// same logrus-backed Logger shape and context-scoped trace id, narrowed to
// the fields the engine itself needs (operation, entity id, cache
// hit/miss, sync outcome) instead of HTTP/blockchain-specific helpers.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carried by the engine's loggers.
type ContextKey string

// TraceIDKey is the context key under which a per-operation trace id is stored.
const TraceIDKey ContextKey = "trace_id"

// Logger wraps logrus.Logger with store-engine specific helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the given component ("store", "policy",
// "reliability", ...) with the given level ("debug", "info", "warn",
// "error") and format ("json" or "text").
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// Noop returns a Logger that discards everything, used as the default when
// a Store is constructed without an explicit logger.
func Noop() *Logger {
	l := New("store", "panic", "json")
	l.SetOutput(nil)
	return l
}

// SetOutput overrides the logger's output writer; nil disables output by
// writing to io.Discard instead.
func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		l.Logger.SetOutput(io.Discard)
		return
	}
	l.Logger.SetOutput(w)
}

// WithContext attaches the trace id from ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

// WithFields creates an entry scoped to this logger's component plus the
// given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// NewTraceID generates a fresh trace id for a new store operation.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// LogOperation logs a completed store operation at debug (success) or error
// (failure) level, matching the duration/outcome shape the Telemetry
// interceptor reports to its metrics reporter.
func (l *Logger) LogOperation(ctx context.Context, op string, entityID interface{}, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"operation":   op,
		"entity_id":   entityID,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("store operation failed")
		return
	}
	entry.Debug("store operation completed")
}

// LogSyncOutcome logs a backend sync attempt.
func (l *Logger) LogSyncOutcome(ctx context.Context, err error) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry.WithError(err).Warn("backend sync failed")
		return
	}
	entry.Debug("backend sync succeeded")
}

// LogCircuitStateChange logs a reliability-wrapper state transition.
func (l *Logger) LogCircuitStateChange(ctx context.Context, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"from_state": from,
		"to_state":   to,
	}).Warn("circuit breaker state changed")
}
