// Package policy implements the Policy Executor (spec.md §4.2): two pure
// sub-handlers, Fetch and Write, that choose the ordering of cache and
// backend operations for a single policy enum value. Neither handler
// retries; retries are an interceptor concern (internal/interceptor).
package policy

import (
	"context"

	"github.com/unfazed-dev/nexus-store/internal/cachemeta"
	"github.com/unfazed-dev/nexus-store/internal/clock"
	"github.com/unfazed-dev/nexus-store/pkg/backend"
	"github.com/unfazed-dev/nexus-store/pkg/query"
	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

// FetchPolicy enumerates the read-path orderings (spec.md §3).
type FetchPolicy string

const (
	FetchCacheFirst           FetchPolicy = "cacheFirst"
	FetchNetworkFirst         FetchPolicy = "networkFirst"
	FetchCacheAndNetwork      FetchPolicy = "cacheAndNetwork"
	FetchCacheOnly            FetchPolicy = "cacheOnly"
	FetchNetworkOnly          FetchPolicy = "networkOnly"
	FetchStaleWhileRevalidate FetchPolicy = "staleWhileRevalidate"
)

// WritePolicy enumerates the write-path orderings (spec.md §3).
type WritePolicy string

const (
	WriteCacheAndNetwork WritePolicy = "cacheAndNetwork"
	WriteNetworkFirst    WritePolicy = "networkFirst"
	WriteCacheFirst      WritePolicy = "cacheFirst"
	WriteCacheOnly       WritePolicy = "cacheOnly"
)

// BackgroundFunc schedules fn to run without blocking the caller. The
// store facade supplies a goroutine-backed implementation; tests can
// supply a synchronous one to make background work deterministic.
type BackgroundFunc func(fn func())

// Executor runs Fetch/Write policies for a single Backend[T, ID]. It holds
// no entity state of its own: cache presence and staleness come from the
// cache-metadata index, not from mirrored payloads (spec.md §4.3).
type Executor[T any, ID comparable] struct {
	Backend    backend.Backend[T, ID]
	CacheMeta  *cachemeta.Index[ID]
	Clock      clock.Clock
	Background BackgroundFunc
}

func (e *Executor[T, ID]) background(fn func()) {
	if e.Background != nil {
		e.Background(fn)
		return
	}
	go fn()
}

// FetchOne resolves a single id per policy (spec.md §4.2 "Fetch semantics,
// single-id form").
func (e *Executor[T, ID]) FetchOne(ctx context.Context, id ID, p FetchPolicy) (*T, error) {
	switch p {
	case FetchCacheOnly:
		return e.Backend.Get(ctx, id)

	case FetchNetworkOnly:
		if err := e.Backend.Sync(ctx); err != nil {
			return nil, err
		}
		e.CacheMeta.Record(id)
		return e.Backend.Get(ctx, id)

	case FetchNetworkFirst:
		if err := e.Backend.Sync(ctx); err != nil {
			return e.Backend.Get(ctx, id)
		}
		e.CacheMeta.Record(id)
		return e.Backend.Get(ctx, id)

	case FetchCacheAndNetwork:
		cached, cacheErr := e.Backend.Get(ctx, id)
		if err := e.Backend.Sync(ctx); err != nil {
			if cacheErr == nil {
				return cached, nil
			}
			return nil, err
		}
		e.CacheMeta.Record(id)
		return e.Backend.Get(ctx, id)

	case FetchStaleWhileRevalidate:
		cached, cacheErr := e.Backend.Get(ctx, id)
		if cacheErr == nil && cached != nil {
			e.background(func() {
				bgCtx := context.Background()
				if err := e.Backend.Sync(bgCtx); err == nil {
					e.CacheMeta.Record(id)
				}
			})
			return cached, nil
		}
		if err := e.Backend.Sync(ctx); err != nil {
			return nil, err
		}
		e.CacheMeta.Record(id)
		return e.Backend.Get(ctx, id)

	case FetchCacheFirst:
		fallthrough
	default:
		cached, cacheErr := e.Backend.Get(ctx, id)
		if cacheErr == nil && cached != nil && !e.CacheMeta.IsStale(id) {
			return cached, nil
		}
		if err := e.Backend.Sync(ctx); err != nil {
			if cacheErr == nil && cached != nil {
				return cached, nil
			}
			return nil, err
		}
		e.CacheMeta.Record(id)
		return e.Backend.Get(ctx, id)
	}
}

// FetchAll resolves a query per policy. The list form short-circuits on an
// empty cache result rather than nil (spec.md §4.2).
func (e *Executor[T, ID]) FetchAll(ctx context.Context, q *query.Query, p FetchPolicy) ([]T, error) {
	switch p {
	case FetchCacheOnly:
		return e.Backend.GetAll(ctx, q)

	case FetchNetworkOnly:
		if err := e.Backend.Sync(ctx); err != nil {
			return nil, err
		}
		return e.Backend.GetAll(ctx, q)

	case FetchNetworkFirst:
		if err := e.Backend.Sync(ctx); err != nil {
			return e.Backend.GetAll(ctx, q)
		}
		return e.Backend.GetAll(ctx, q)

	case FetchCacheAndNetwork:
		cached, cacheErr := e.Backend.GetAll(ctx, q)
		if err := e.Backend.Sync(ctx); err != nil {
			if cacheErr == nil {
				return cached, nil
			}
			return nil, err
		}
		return e.Backend.GetAll(ctx, q)

	case FetchStaleWhileRevalidate:
		cached, cacheErr := e.Backend.GetAll(ctx, q)
		if cacheErr == nil && len(cached) > 0 {
			e.background(func() {
				_ = e.Backend.Sync(context.Background())
			})
			return cached, nil
		}
		if err := e.Backend.Sync(ctx); err != nil {
			return nil, err
		}
		return e.Backend.GetAll(ctx, q)

	case FetchCacheFirst:
		fallthrough
	default:
		cached, cacheErr := e.Backend.GetAll(ctx, q)
		if cacheErr == nil && len(cached) > 0 {
			return cached, nil
		}
		if err := e.Backend.Sync(ctx); err != nil {
			if cacheErr == nil {
				return cached, nil
			}
			return nil, err
		}
		return e.Backend.GetAll(ctx, q)
	}
}

// Write persists item per policy (spec.md §4.2 "Write semantics").
func (e *Executor[T, ID]) Write(ctx context.Context, item T, p WritePolicy) (T, error) {
	saved, err := e.Backend.Save(ctx, item)
	if err != nil {
		var zero T
		return zero, err
	}

	switch p {
	case WriteCacheOnly:
		return saved, nil

	case WriteCacheFirst:
		e.background(func() {
			_ = e.Backend.Sync(context.Background())
		})
		return saved, nil

	case WriteNetworkFirst, WriteCacheAndNetwork:
		fallthrough
	default:
		if err := e.Backend.Sync(ctx); err != nil {
			return saved, storeerrors.Wrap(storeerrors.CodeNetwork, "sync after write failed", err)
		}
		return saved, nil
	}
}
