// Package backend defines the Backend Contract collaborator interface the
// engine requires of any concrete storage driver (embedded SQL, remote
// REST/Realtime, CRDT replica, ...). Concrete drivers live outside the
// engine; this package only defines the shapes every driver must satisfy.
package backend

import (
	"context"

	"github.com/unfazed-dev/nexus-store/pkg/query"
)

// SyncStatus mirrors the store-level sync-status FSM (spec.md §3, §4.5).
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSyncing  SyncStatus = "syncing"
	SyncStatusError    SyncStatus = "error"
	SyncStatusPaused   SyncStatus = "paused"
	SyncStatusConflict SyncStatus = "conflict"
)

// Capabilities advertises what a Backend implementation can do. Components
// consult these flags instead of type-asserting the Backend.
type Capabilities struct {
	SupportsOffline      bool
	SupportsRealtime     bool
	SupportsTransactions bool
	SupportsPagination   bool
	// ConcurrentCalls advertises that this backend may be called
	// concurrently (spec.md §5 "Shared resources"). No engine component
	// reads it, and the engine never serializes backend calls, whatever
	// its value.
	ConcurrentCalls bool
}

// PageInfo describes the result of a cursor-paginated query (spec.md §6.2).
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *Cursor
	EndCursor       *Cursor
	TotalCount      *int
}

// Cursor is an opaque pagination marker. Exactly one of Index or Keys is
// populated: simple backends use an integer offset, backends with a
// key-set sort specification instead carry one value per sort key.
type Cursor struct {
	Index *int64
	Keys  []interface{}
}

// PagedResult bundles a page of items with its PageInfo.
type PagedResult[T any] struct {
	Items    []T
	PageInfo PageInfo
}

// Stream is a latest-value replay channel: new subscribers observe the
// current value synchronously before any future emission (spec.md §9).
type Stream[T any] interface {
	// Next blocks until the next emission or ctx is done. The first call
	// after Subscribe returns immediately with the current value.
	Next(ctx context.Context) (T, error)
	// Close releases the subscription.
	Close()
}

// Backend is the single most important collaborator interface (spec.md
// §6.1). T is the entity payload type, ID its identifier type.
type Backend[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (*T, error)
	GetAll(ctx context.Context, q *query.Query) ([]T, error)

	Watch(ctx context.Context, id ID) (Stream[*T], error)
	WatchAll(ctx context.Context, q *query.Query) (Stream[[]T], error)

	Save(ctx context.Context, item T) (T, error)
	SaveAll(ctx context.Context, items []T) ([]T, error)

	Delete(ctx context.Context, id ID) (bool, error)
	DeleteAll(ctx context.Context, ids []ID) (int, error)
	DeleteWhere(ctx context.Context, q *query.Query) (int, error)

	Sync(ctx context.Context) error
	SyncStatus(ctx context.Context) (SyncStatus, error)
	SyncStatusStream(ctx context.Context) (Stream[SyncStatus], error)
	PendingChangesCount(ctx context.Context) (int, error)

	GetAllPaged(ctx context.Context, q *query.Query) (PagedResult[T], error)
	WatchAllPaged(ctx context.Context, q *query.Query) (Stream[PagedResult[T]], error)

	Initialize(ctx context.Context) error
	Close(ctx context.Context) error

	Capabilities() Capabilities
}

// Defaults implements the optional-capability fallbacks described in
// spec.md §6.1: "backends without sync return SyncStatus.synced and zero
// pending changes; backends without pagination wrap getAll in an empty
// PageInfo." Defaults itself covers only the sync half (Sync, SyncStatus,
// PendingChangesCount); the pagination fallback is the WrapUnpaged helper
// below. Concrete backends embed Defaults[T] and override only the
// operations their storage technology actually supports.
type Defaults[T any] struct{}

func (Defaults[T]) Sync(ctx context.Context) error { return nil }

func (Defaults[T]) SyncStatus(ctx context.Context) (SyncStatus, error) {
	return SyncStatusSynced, nil
}

func (Defaults[T]) PendingChangesCount(ctx context.Context) (int, error) {
	return 0, nil
}

// WrapUnpaged adapts a plain GetAll into a GetAllPaged result carrying no
// pagination metadata, for backends with SupportsPagination=false.
func WrapUnpaged[T any](items []T) PagedResult[T] {
	return PagedResult[T]{Items: items, PageInfo: PageInfo{HasNextPage: false, HasPreviousPage: false}}
}
