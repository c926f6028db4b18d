// Package nexusstore implements the Store Facade (spec.md §4.1): the
// single entry point composing the Policy Executor, Reactive Subscription
// Layer, Pending-Change Machine, Interceptor Chain, and Reliability
// Wrapper around one Backend[T, ID].
package nexusstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/cachemeta"
	"github.com/unfazed-dev/nexus-store/internal/clock"
	"github.com/unfazed-dev/nexus-store/internal/interceptor"
	"github.com/unfazed-dev/nexus-store/internal/logging"
	"github.com/unfazed-dev/nexus-store/internal/pendingchange"
	"github.com/unfazed-dev/nexus-store/internal/policy"
	"github.com/unfazed-dev/nexus-store/internal/reactive"
	"github.com/unfazed-dev/nexus-store/internal/reliability"
	"github.com/unfazed-dev/nexus-store/internal/telemetry"
	"github.com/unfazed-dev/nexus-store/pkg/backend"
	"github.com/unfazed-dev/nexus-store/pkg/query"
	"github.com/unfazed-dev/nexus-store/pkg/storeconfig"
	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

// lifecycleState tracks the facade's init/close contract (spec.md §4.1
// "Contract": calls before initialize() or after close() fail with a
// lifecycle error).
type lifecycleState int

const (
	lifecycleUninitialized lifecycleState = iota
	lifecycleInitialized
	lifecycleClosed
)

// AuditRecord is passed verbatim to an AuditReporter after every
// operation when audit logging is enabled (SPEC_FULL.md §3.1).
type AuditRecord struct {
	Op       interceptor.OperationKind
	EntityID interface{}
	Outcome  string
	At       time.Time
	Actor    interface{}
}

// AuditReporter is a fire-and-forget audit sink (spec.md §4.1 "Side
// effects"). Out of scope to implement concretely per spec.md §1; callers
// supply their own.
type AuditReporter interface {
	Record(ctx context.Context, rec AuditRecord)
}

// Store is the facade over a single Backend[T, ID] (spec.md §4.1).
type Store[T any, ID comparable] struct {
	cfg      storeconfig.Config
	idOf     func(T) ID
	accessor query.FieldAccessor[T]

	backend   backend.Backend[T, ID]
	executor  *policy.Executor[T, ID]
	cacheMeta *cachemeta.Index[ID]
	hub       *reactive.Hub[ID, T]
	queue     *pendingchange.Queue
	resolver  pendingchange.Resolver

	dedup   *interceptor.Dedup
	retry   *interceptor.Retry
	chain   *interceptor.Chain
	breaker *reliability.Breaker
	health  *reliability.HealthProbe

	audit AuditReporter
	clock clock.Clock
	log   *logging.Logger

	mu         sync.Mutex
	lifecycle  lifecycleState
	lastSyncOK bool
	draining   bool
}

// Deps bundles the Store's collaborators (spec.md §4.8 "constructor-
// injected, interface-typed dependencies").
type Deps[T any, ID comparable] struct {
	Backend  backend.Backend[T, ID]
	IDOf     func(T) ID
	Accessor query.FieldAccessor[T]
	Clock    clock.Clock
	Reporter telemetry.Reporter
	Logger   *logging.Logger // optional, defaults to a discarding logger
	Audit    AuditReporter   // optional
	Merge    func(local, remote interface{}) interface{} // optional, for ConflictResolution=merge
}

// New builds a Store from cfg and deps. The store is not usable until
// Initialize is called.
func New[T any, ID comparable](cfg storeconfig.Config, deps Deps[T, ID]) *Store[T, ID] {
	c := deps.Clock
	if c == nil {
		c = clock.Real{}
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = telemetry.Noop{}
	}
	log := deps.Logger
	if log == nil {
		log = logging.Noop()
	}

	cacheMeta := cachemeta.New[ID](c, cfg.StaleDuration)
	hub := reactive.NewHub[ID, T](c, 10*time.Minute, deps.Accessor, deps.IDOf)
	queue := pendingchange.NewQueue(c, cfg.RetryConfig)

	breakerCfg := cfg.BreakerConfig()
	breakerCfg.OnStateChange = func(from, to reliability.BreakerState) {
		log.LogCircuitStateChange(context.Background(), from.String(), to.String())
	}
	breaker := reliability.NewBreaker(breakerCfg)

	executor := &policy.Executor[T, ID]{Backend: deps.Backend, CacheMeta: cacheMeta, Clock: c}

	dedup := interceptor.NewDedup(func(op *interceptor.OpContext) string {
		if q, ok := op.Request.(*query.Query); ok {
			return q.Fingerprint()
		}
		return fmt.Sprintf("%v|%v", op.EntityID, op.Request)
	})
	retry := interceptor.NewRetry(interceptor.DefaultRetryConfig(), storeconfig.InterceptorKindsFor(cfg.InterceptorOrder)...)
	chain := interceptor.NewChain(interceptor.NewTelemetry(reporter))

	return &Store[T, ID]{
		cfg:       cfg,
		idOf:      deps.IDOf,
		accessor:  deps.Accessor,
		backend:   deps.Backend,
		executor:  executor,
		cacheMeta: cacheMeta,
		hub:       hub,
		queue:     queue,
		resolver:  pendingchange.Resolver{Strategy: cfg.ConflictResolution, Merge: deps.Merge},
		dedup:     dedup,
		retry:     retry,
		chain:     chain,
		breaker:   breaker,
		health:    reliability.NewHealthProbe(breaker),
		audit:     deps.Audit,
		clock:     c,
		log:       log,
		lifecycle: lifecycleUninitialized,
	}
}

// Initialize transitions the store out of its uninitialized lifecycle
// state and initializes the backend (spec.md §4.1 "Contract").
func (s *Store[T, ID]) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle != lifecycleUninitialized {
		return storeerrors.LifecycleErr("store already initialized")
	}
	if err := s.backend.Initialize(ctx); err != nil {
		return err
	}
	s.lifecycle = lifecycleInitialized
	return nil
}

// Close transitions the store to closed and closes the backend.
func (s *Store[T, ID]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle != lifecycleInitialized {
		return storeerrors.LifecycleErr("store not initialized or already closed")
	}
	s.lifecycle = lifecycleClosed
	return s.backend.Close(ctx)
}

func (s *Store[T, ID]) checkLifecycle() error {
	s.mu.Lock()
	state := s.lifecycle
	s.mu.Unlock()
	if state != lifecycleInitialized {
		return storeerrors.LifecycleErr("store is not initialized or has been closed")
	}
	return nil
}

// run wraps a backend operation with the Interceptor Chain (spec.md
// §4.1, §4.6): dedup and retry wrap the call closure itself, and the
// chain's onRequest/onResponse/onError hooks (telemetry, plus any
// caller-supplied interceptors) visit in order / reverse order around it.
func (s *Store[T, ID]) run(ctx context.Context, op *interceptor.OpContext, call func(context.Context) (interface{}, error)) (interface{}, error) {
	wrapped := call
	if s.retry.Applies(op.Kind) {
		wrapped = s.retry.WrapCall(op, wrapped)
	}
	if s.dedup.Applies(op.Kind) {
		wrapped = s.dedup.WrapCall(op, wrapped)
	}

	start := s.clock.Now()
	var breakerErr error
	result, err := s.chain.Run(ctx, op, func(ctx context.Context) (interface{}, error) {
		var v interface{}
		breakerErr = s.breaker.Execute(ctx, func() error {
			var callErr error
			v, callErr = wrapped(ctx)
			return callErr
		})
		return v, breakerErr
	})
	s.log.LogOperation(ctx, string(op.Kind), op.EntityID, s.clock.Now().Sub(start), err)

	if s.audit != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.audit.Record(ctx, AuditRecord{Op: op.Kind, EntityID: op.EntityID, Outcome: outcome, At: s.clock.Now()})
	}
	return result, err
}

// Get resolves a single entity per policy (spec.md §4.1 `get(id,
// policy?)`).
func (s *Store[T, ID]) Get(ctx context.Context, id ID, p policy.FetchPolicy) (*T, error) {
	if err := s.checkLifecycle(); err != nil {
		return nil, err
	}
	op := interceptor.NewOpContext(interceptor.OpGet, id, id)
	resp, err := s.run(ctx, op, func(ctx context.Context) (interface{}, error) {
		return s.executor.FetchOne(ctx, id, p)
	})
	if err != nil {
		if storeerrors.Is(err, storeerrors.CodeCircuitOpen) {
			if cached, cacheErr := s.backend.Get(ctx, id); cacheErr == nil && cached != nil {
				if v, _, fbErr := reliability.FetchFallback(cached, true, p != policy.FetchNetworkOnly, err); fbErr == nil {
					return v, nil
				}
			}
		}
		return nil, err
	}
	v, _ := resp.(*T)
	return v, nil
}

// GetAll resolves a query per policy (spec.md §4.1 `getAll(query?,
// policy?)`).
func (s *Store[T, ID]) GetAll(ctx context.Context, q *query.Query, p policy.FetchPolicy) ([]T, error) {
	if err := s.checkLifecycle(); err != nil {
		return nil, err
	}
	op := interceptor.NewOpContext(interceptor.OpGetAll, q, nil)
	resp, err := s.run(ctx, op, func(ctx context.Context) (interface{}, error) {
		return s.executor.FetchAll(ctx, q, p)
	})
	if err != nil {
		return nil, err
	}
	v, _ := resp.([]T)
	return v, nil
}

// Watch subscribes to id's latest-value stream (spec.md §4.1 `watch(id)`).
func (s *Store[T, ID]) Watch(ctx context.Context, id ID) *reactive.Subscription[*T] {
	return s.hub.WatchID(id, func() (*T, bool) {
		v, err := s.backend.Get(ctx, id)
		if err != nil || v == nil {
			return nil, false
		}
		return v, true
	})
}

// WatchAll subscribes to q's latest-list stream (spec.md §4.1
// `watchAll(query?)`).
func (s *Store[T, ID]) WatchAll(ctx context.Context, q *query.Query) *reactive.Subscription[[]T] {
	if q == nil {
		q = query.New()
	}
	return s.hub.WatchQuery(q, func() ([]T, bool) {
		v, err := s.backend.GetAll(ctx, q)
		if err != nil {
			return nil, false
		}
		return v, true
	})
}

// Save writes item per policy (spec.md §4.1 `save(item, policy?, tags?)`).
// A successful write schedules a reactive notify and a cache-metadata
// touch (spec.md §4.1 "Side effects").
func (s *Store[T, ID]) Save(ctx context.Context, item T, p policy.WritePolicy, tags ...string) (T, error) {
	var zero T
	if err := s.checkLifecycle(); err != nil {
		return zero, err
	}
	id := s.idOf(item)
	op := interceptor.NewOpContext(interceptor.OpSave, item, id)
	resp, err := s.run(ctx, op, func(ctx context.Context) (interface{}, error) {
		return s.executor.Write(ctx, item, p)
	})
	if err != nil {
		if offlineTolerant(p) {
			s.queue.Enqueue(id, pendingchange.KindUpsert, item)
			s.cacheMeta.Record(id, tags...)
			s.hub.NotifyUpsert(id, item)
			return item, nil
		}
		return zero, err
	}

	saved, _ := resp.(T)
	s.cacheMeta.Record(id, tags...)
	s.hub.NotifyUpsert(id, saved)
	return saved, nil
}

// SaveAll writes each item per policy, dispatching one Save per item so
// every write gets its own interceptor/offline-queue treatment. A failure
// stops at the first item that could not be saved (and was not
// offline-queued), returning the items saved so far.
func (s *Store[T, ID]) SaveAll(ctx context.Context, items []T, p policy.WritePolicy, tags ...string) ([]T, error) {
	saved := make([]T, 0, len(items))
	for _, item := range items {
		v, err := s.Save(ctx, item, p, tags...)
		if err != nil {
			return saved, err
		}
		saved = append(saved, v)
	}
	return saved, nil
}

func offlineTolerant(p policy.WritePolicy) bool {
	return p == policy.WriteCacheFirst || p == policy.WriteCacheOnly
}

// Delete removes id per policy (spec.md §4.1 `delete(id, policy?)`).
func (s *Store[T, ID]) Delete(ctx context.Context, id ID, p policy.WritePolicy) error {
	if err := s.checkLifecycle(); err != nil {
		return err
	}
	op := interceptor.NewOpContext(interceptor.OpDelete, id, id)
	_, err := s.run(ctx, op, func(ctx context.Context) (interface{}, error) {
		return s.backend.Delete(ctx, id)
	})
	if err != nil {
		if offlineTolerant(p) {
			s.queue.Enqueue(id, pendingchange.KindDelete, nil)
			s.cacheMeta.Remove(id)
			s.hub.NotifyDelete(id)
			return nil
		}
		return err
	}
	s.cacheMeta.Remove(id)
	s.hub.NotifyDelete(id)
	return nil
}

// DeleteAll removes each id per policy, dispatching one Delete per id so
// every removal gets its own interceptor/offline-queue treatment.
func (s *Store[T, ID]) DeleteAll(ctx context.Context, ids []ID, p policy.WritePolicy) error {
	for _, id := range ids {
		if err := s.Delete(ctx, id, p); err != nil {
			return err
		}
	}
	return nil
}

// GetAllPaged resolves a cursor-paginated page of q. Unlike Get/GetAll,
// pagination is a capability of the backend itself (offset or key-set
// windowing), so this dispatches straight to the backend rather than
// through the Policy Executor's cache-first/network-only branches.
func (s *Store[T, ID]) GetAllPaged(ctx context.Context, q *query.Query) (backend.PagedResult[T], error) {
	if err := s.checkLifecycle(); err != nil {
		return backend.PagedResult[T]{}, err
	}
	if q == nil {
		q = query.New()
	}
	op := interceptor.NewOpContext(interceptor.OpGetAll, q, nil)
	resp, err := s.run(ctx, op, func(ctx context.Context) (interface{}, error) {
		return s.backend.GetAllPaged(ctx, q)
	})
	if err != nil {
		return backend.PagedResult[T]{}, err
	}
	v, _ := resp.(backend.PagedResult[T])
	return v, nil
}

// WatchAllPaged subscribes to q's paginated result stream. Paged watches
// are served by the backend's own stream rather than the Reactive
// Subscription Layer's Hub: the Hub's latest-value
// broadcast is keyed by plain query fingerprints and re-fetches via
// GetAll/Get, neither of which carries windowing, so re-deriving a page
// from it would require duplicating the backend's own cursor bookkeeping.
func (s *Store[T, ID]) WatchAllPaged(ctx context.Context, q *query.Query) (backend.Stream[backend.PagedResult[T]], error) {
	if err := s.checkLifecycle(); err != nil {
		return nil, err
	}
	if q == nil {
		q = query.New()
	}
	return s.backend.WatchAllPaged(ctx, q)
}

// SyncStatusStream subscribes to the backend's raw sync-status stream.
// It reflects the backend's own view of connectivity and
// in-flight sync, not the richer store-level FSM SyncStatus() derives from
// the pending-change queue and drain state; use SyncStatus() for that.
func (s *Store[T, ID]) SyncStatusStream(ctx context.Context) (backend.Stream[backend.SyncStatus], error) {
	if err := s.checkLifecycle(); err != nil {
		return nil, err
	}
	return s.backend.SyncStatusStream(ctx)
}

// Sync triggers an immediate backend sync and, when that succeeds, drains
// the pending-change queue (spec.md §4.1 `sync()`).
func (s *Store[T, ID]) Sync(ctx context.Context) error {
	if err := s.checkLifecycle(); err != nil {
		return err
	}
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	err := s.breaker.Execute(ctx, func() error { return s.backend.Sync(ctx) })
	if err == nil {
		s.DrainPendingChanges(ctx)
	}
	s.mu.Lock()
	s.lastSyncOK = err == nil
	s.mu.Unlock()
	s.log.LogSyncOutcome(ctx, err)
	return err
}

// SyncStatus derives the store-level sync-status FSM (spec.md §4.5).
func (s *Store[T, ID]) SyncStatus() backend.SyncStatus {
	s.mu.Lock()
	lastOK, draining := s.lastSyncOK, s.draining
	s.mu.Unlock()
	return pendingchange.DeriveSyncStatus(s.queue.Status(), lastOK, draining)
}

// PendingChangesCount reports the number of changes still tracked
// (spec.md §4.1 `pendingChangesCount`).
func (s *Store[T, ID]) PendingChangesCount() int { return s.queue.Count() }

// Invalidate marks id stale (spec.md §4.1 `invalidate(id)`).
func (s *Store[T, ID]) Invalidate(id ID) { s.cacheMeta.Invalidate(id) }

// InvalidateAll marks every tracked id stale.
func (s *Store[T, ID]) InvalidateAll() { s.cacheMeta.InvalidateAll() }

// InvalidateByTags marks every id carrying any of tags stale.
func (s *Store[T, ID]) InvalidateByTags(tags []string) { s.cacheMeta.InvalidateByTags(tags) }

// InvalidateWhere marks ids whose fetched value matches q stale (spec.md
// §4.3, §9 "invalidateWhere").
func (s *Store[T, ID]) InvalidateWhere(ctx context.Context, q *query.Query) error {
	return cachemeta.InvalidateWhere(ctx, s.cacheMeta, q, s.accessor, s.backend.Get)
}

// Conflicts lists every pending change currently paused in the
// `conflicting` status, awaiting an explicit retry or cancel.
func (s *Store[T, ID]) Conflicts() []pendingchange.Change { return s.queue.Conflicts() }

// ConflictStream subscribes to the stream of ConflictDetails as changes
// enter `conflicting`.
func (s *Store[T, ID]) ConflictStream() *reactive.Subscription[pendingchange.ConflictDetails] {
	return s.queue.ConflictStream()
}

// RetryChange resubmits a conflicting or failed change with an explicit
// replacement payload. Passing a nil replacement retries the change's
// existing payload unchanged. It reports whether id was found in a
// retryable status.
func (s *Store[T, ID]) RetryChange(id pendingchange.ChangeID, replacement interface{}) bool {
	return s.queue.Retry(id, replacement)
}

// CancelChange drops a pending change without applying it, the companion
// operation to RetryChange for changes paused under custom resolution.
func (s *Store[T, ID]) CancelChange(id pendingchange.ChangeID) bool {
	return s.queue.Cancel(id)
}

// Health reports the current aggregated HealthState (spec.md §4.7
// "Health API").
func (s *Store[T, ID]) Health() reliability.HealthState {
	s.mu.Lock()
	lastOK := s.lastSyncOK
	s.mu.Unlock()
	return s.health.Report(lastOK, s.queue.Count(), s.backend.Capabilities())
}

// DrainPendingChanges attempts one in-flight apply per eligible pending
// change (spec.md §4.5 "dequeue()" driving the queue toward empty). Each
// change goes straight to the backend's Save or Delete. A conflict that the
// resolver answers with a retry is requeued only when the drain ends, so no
// change is applied twice in one drain.
func (s *Store[T, ID]) DrainPendingChanges(ctx context.Context) {
	type deferredRetry struct {
		id      pendingchange.ChangeID
		payload interface{}
	}
	var retries []deferredRetry
	defer func() {
		for _, r := range retries {
			s.queue.Retry(r.id, r.payload)
		}
	}()
	for {
		ch, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		var err error
		switch ch.Kind {
		case pendingchange.KindUpsert:
			item, _ := ch.Payload.(T)
			_, err = s.backend.Save(ctx, item)
		case pendingchange.KindDelete:
			_, err = s.backend.Delete(ctx, ch.EntityID.(ID))
		}
		if err == nil {
			s.queue.MarkSynced(ch.ID)
			continue
		}
		if se := storeerrors.As(err); se != nil && se.Code == storeerrors.CodeConflict {
			details := pendingchange.ConflictDetails{ChangeID: ch.ID, EntityID: ch.EntityID, LocalPayload: ch.Payload, Reason: se.Message}
			s.queue.MarkConflicting(ch.ID, details)
			action, payload := s.resolver.Resolve(details)
			switch action {
			case pendingchange.ActionDrop:
				s.queue.Cancel(ch.ID)
			case pendingchange.ActionRetry:
				retries = append(retries, deferredRetry{ch.ID, payload})
			}
			continue
		}
		s.queue.MarkFailed(ch.ID, err)
	}
}
