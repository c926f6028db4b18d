package reactive

import (
	"sync"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/clock"
)

// Registry owns a set of Sinks keyed by K (an entity id or a query
// fingerprint) and is their sole owner. It has no Close: a sink leaves the
// registry only through Sweep or Remove, and subscriptions still open on
// it are not closed then.
type Registry[K comparable, V any] struct {
	mu          sync.Mutex
	clock       clock.Clock
	idleTimeout time.Duration // how long an unsubscribed sink is kept around to seed future subscribers
	sinks       map[K]*sinkEntry[V]
}

type sinkEntry[V any] struct {
	sink         *Sink[V]
	idleSince    time.Time
	hasIdleSince bool
}

// NewRegistry creates a Registry. idleTimeout of 0 means idle sinks are
// dropped immediately once their last subscriber unsubscribes.
func NewRegistry[K comparable, V any](c clock.Clock, idleTimeout time.Duration) *Registry[K, V] {
	return &Registry[K, V]{
		clock:       c,
		idleTimeout: idleTimeout,
		sinks:       make(map[K]*sinkEntry[V]),
	}
}

// getOrCreate returns the sink for key, creating it if absent.
func (r *Registry[K, V]) getOrCreate(key K) *Sink[V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sinks[key]
	if !ok {
		e = &sinkEntry[V]{sink: NewSink[V]()}
		r.sinks[key] = e
	}
	e.hasIdleSince = false
	return e.sink
}

// Watch returns a subscription for key. If no sink exists yet and seed
// returns a value, that value seeds the sink before the subscription is
// created (spec.md §4.4 "Contract": "first delivered element is the
// current cached value (or the first backend emission if none)").
func (r *Registry[K, V]) Watch(key K, seed func() (V, bool)) *Subscription[V] {
	r.mu.Lock()
	e, ok := r.sinks[key]
	if !ok {
		e = &sinkEntry[V]{sink: NewSink[V]()}
		r.sinks[key] = e
	}
	e.hasIdleSince = false
	sink := e.sink
	r.mu.Unlock()

	if _, has := sink.Current(); !has && seed != nil {
		if v, ok := seed(); ok {
			sink.Publish(v)
		}
	}
	return sink.Subscribe()
}

// Publish publishes v on key's sink, creating the sink if necessary so a
// write to an id nobody is watching yet still seeds future subscribers.
func (r *Registry[K, V]) Publish(key K, v V) {
	sink := r.getOrCreate(key)
	sink.Publish(v)
}

// Each calls fn for every currently-tracked key and its sink, used by the
// query registry's fan-out on notify (spec.md §4.4 "Notify protocol").
func (r *Registry[K, V]) Each(fn func(key K, sink *Sink[V])) {
	r.mu.Lock()
	snapshot := make(map[K]*Sink[V], len(r.sinks))
	for k, e := range r.sinks {
		snapshot[k] = e.sink
	}
	r.mu.Unlock()

	for k, sink := range snapshot {
		fn(k, sink)
	}
}

// Sweep drops sinks that have had zero subscribers for longer than
// idleTimeout (spec.md §4.4 "Backpressure": "the sink is retained for
// seeding future subscribers for a bounded idle period, then dropped").
func (r *Registry[K, V]) Sweep() {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, e := range r.sinks {
		if e.sink.SubscriberCount() > 0 {
			e.hasIdleSince = false
			continue
		}
		if !e.hasIdleSince {
			e.hasIdleSince = true
			e.idleSince = now
			continue
		}
		if now.Sub(e.idleSince) >= r.idleTimeout {
			delete(r.sinks, key)
		}
	}
}

// Size returns the number of tracked sinks, for diagnostics/tests.
func (r *Registry[K, V]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}

// Remove drops key's sink immediately, regardless of idle policy (used
// when an entity is definitively removed, e.g. after delete + tag cleanup).
func (r *Registry[K, V]) Remove(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, key)
}
