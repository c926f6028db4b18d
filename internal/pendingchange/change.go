// Package pendingchange implements the Pending-Change / Sync Machine
// (spec.md §4.5): a FIFO queue of PendingChange records with secondary
// indexes by entity id and by status, a retry policy grounded on the
// teacher's cenkalti/backoff-based RetryConfig
// (infrastructure/resilience/resilience.go), and a conflict surface
// consumed by the configured ConflictResolution strategy.
package pendingchange

import (
	"time"
)

// ChangeKind distinguishes an upsert-shaped pending change from a delete.
type ChangeKind string

const (
	KindUpsert ChangeKind = "upsert"
	KindDelete ChangeKind = "delete"
)

// Status is the per-change FSM state (spec.md §4.5 "Status FSM").
type Status string

const (
	StatusQueued      Status = "queued"
	StatusInFlight    Status = "in-flight"
	StatusFailed      Status = "failed"
	StatusConflicting Status = "conflicting"
)

// ConflictResolution selects how a conflicting change is resolved
// (spec.md §3).
type ConflictResolution string

const (
	ResolveServerWins ConflictResolution = "serverWins"
	ResolveClientWins ConflictResolution = "clientWins"
	ResolveLatestWins ConflictResolution = "latestWins"
	ResolveMerge      ConflictResolution = "merge"
	ResolveCRDT       ConflictResolution = "crdt"
	ResolveCustom     ConflictResolution = "custom"
)

// ChangeID uniquely identifies a PendingChange, engine-generated at enqueue
// time (spec.md §3 "PendingChange").
type ChangeID string

// Change is a PendingChange record (spec.md §3). Payload is untyped here
// because the queue is shared across every entity type the store manages;
// Store.DrainPendingChanges (store.go) type-asserts it back to the store's
// entity type when it applies the change.
type Change struct {
	ID         ChangeID
	EntityID   interface{}
	Kind       ChangeKind
	Payload    interface{}
	Attempts   int
	EnqueuedAt time.Time
	NextAttempt time.Time
	LastError  error
	Status     Status
}

// ConflictDetails is exposed on the conflicts stream when a backend
// reports a conflict on apply (spec.md §4.5 "Conflict surface").
type ConflictDetails struct {
	ChangeID      ChangeID
	EntityID      interface{}
	LocalPayload  interface{}
	RemotePayload interface{}
	Reason        string
	Timestamp     time.Time
}
