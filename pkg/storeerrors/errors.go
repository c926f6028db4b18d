// Package storeerrors provides the unified, typed error values returned by
// every nexus-store operation. It generalizes the service_layer project's
// infrastructure/errors.ServiceError to the store engine's error kinds.
package storeerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure a store operation surfaced.
type Code string

const (
	// CodeNotFound means the queried id is absent from the backend.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict means a write was rejected due to a version mismatch.
	CodeConflict Code = "CONFLICT"
	// CodeNetwork means a transport failure occurred; feeds the circuit breaker.
	CodeNetwork Code = "NETWORK"
	// CodeAuth means the backend refused credentials or a policy check.
	CodeAuth Code = "AUTH"
	// CodeTimeout means an operation-level deadline expired.
	CodeTimeout Code = "TIMEOUT"
	// CodeCancelled means the consumer cancelled the operation.
	CodeCancelled Code = "CANCELLED"
	// CodeValidation means the input violated a backend constraint.
	CodeValidation Code = "VALIDATION"
	// CodeCircuitOpen means the reliability wrapper refused to call the backend.
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
	// CodeLifecycle means the operation ran before initialize() or after close().
	CodeLifecycle Code = "LIFECYCLE"
	// CodeConfiguration means invalid configuration was detected at initialize().
	CodeConfiguration Code = "CONFIGURATION"
	// CodeEncryption is surfaced verbatim from a security collaborator.
	CodeEncryption Code = "ENCRYPTION"
	// CodeInternal marks an invariant violation; always a bug.
	CodeInternal Code = "INTERNAL"
)

// StoreError is the typed error value every store-facing API returns.
type StoreError struct {
	Code     Code
	Message  string
	Op       string // operation kind, e.g. "get", "save", "sync"
	EntityID interface{}
	Details  map[string]interface{}
	Err      error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s (op=%s): %v", e.Code, e.Message, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s (op=%s)", e.Code, e.Message, e.Op)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WithOp attaches the originating operation kind.
func (e *StoreError) WithOp(op string) *StoreError {
	e.Op = op
	return e
}

// WithEntityID attaches the entity id the operation targeted, if any.
func (e *StoreError) WithEntityID(id interface{}) *StoreError {
	e.EntityID = id
	return e
}

// WithDetail adds a key/value pair to the error's details map.
func (e *StoreError) WithDetail(key string, value interface{}) *StoreError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a StoreError with no underlying cause.
func New(code Code, message string) *StoreError {
	return &StoreError{Code: code, Message: message}
}

// Wrap creates a StoreError around an existing error.
func Wrap(code Code, message string, err error) *StoreError {
	return &StoreError{Code: code, Message: message, Err: err}
}

// Constructors, one per kind, matching the error-kind table in spec.md §7.

func NotFound(entityID interface{}) *StoreError {
	return New(CodeNotFound, "entity not found").WithEntityID(entityID)
}

func ConflictErr(localPayload, remotePayload interface{}, reason string) *StoreError {
	return New(CodeConflict, reason).
		WithDetail("local", localPayload).
		WithDetail("remote", remotePayload)
}

func NetworkErr(err error) *StoreError {
	return Wrap(CodeNetwork, "transport failure", err)
}

func AuthErr(message string) *StoreError {
	return New(CodeAuth, message)
}

func TimeoutErr(op string) *StoreError {
	return New(CodeTimeout, "operation timed out").WithOp(op)
}

func CancelledErr(op string) *StoreError {
	return New(CodeCancelled, "operation cancelled").WithOp(op)
}

func ValidationErr(reason string) *StoreError {
	return New(CodeValidation, reason)
}

func CircuitOpenErr() *StoreError {
	return New(CodeCircuitOpen, "circuit breaker is open")
}

func LifecycleErr(message string) *StoreError {
	return New(CodeLifecycle, message)
}

func ConfigurationErr(message string) *StoreError {
	return New(CodeConfiguration, message)
}

func EncryptionErr(err error) *StoreError {
	return Wrap(CodeEncryption, "encryption provider error", err)
}

func Internal(message string, err error) *StoreError {
	return Wrap(CodeInternal, message, err)
}

// Is reports whether err is a StoreError of the given code.
func Is(err error, code Code) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// As extracts a *StoreError from err's chain, if present.
func As(err error) *StoreError {
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
