package reactive

import (
	"sync"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/clock"
	"github.com/unfazed-dev/nexus-store/pkg/query"
)

// Hub composes the two registries named in spec.md §3
// ("SubscriptionRegistry. Two maps: id -> ... sink of Option<T>; query
// fingerprint -> ... sink of List<T>") and implements the cross-registry
// notify protocol from spec.md §4.4.
type Hub[ID comparable, T any] struct {
	IDs     *Registry[ID, *T]
	Queries *Registry[string, []T]

	accessor query.FieldAccessor[T]
	idOf     func(T) ID

	mu       sync.Mutex
	queryDef map[string]*query.Query // fingerprint -> query, for client-side re-evaluation
}

// NewHub constructs a Hub. idOf must be total and stable (spec.md §3 Entity
// invariant). idleRetention bounds how long a sink with zero subscribers is
// kept around before Sweep drops it (spec.md §4.4 "Backpressure").
func NewHub[ID comparable, T any](c clock.Clock, idleRetention time.Duration, accessor query.FieldAccessor[T], idOf func(T) ID) *Hub[ID, T] {
	return &Hub[ID, T]{
		IDs:      NewRegistry[ID, *T](c, idleRetention),
		Queries:  NewRegistry[string, []T](c, idleRetention),
		accessor: accessor,
		idOf:     idOf,
		queryDef: make(map[string]*query.Query),
	}
}

// WatchID subscribes to id's latest-value stream, seeding it with seed()
// if no value has been published yet.
func (h *Hub[ID, T]) WatchID(id ID, seed func() (*T, bool)) *Subscription[*T] {
	return h.IDs.Watch(id, seed)
}

// WatchQuery subscribes to q's latest-list stream, registering q so future
// writes can be client-side filtered against it, and seeding it with
// seed() if no list has been published yet.
func (h *Hub[ID, T]) WatchQuery(q *query.Query, seed func() ([]T, bool)) *Subscription[[]T] {
	fp := q.Fingerprint()
	h.mu.Lock()
	h.queryDef[fp] = q
	h.mu.Unlock()
	return h.Queries.Watch(fp, seed)
}

// NotifyUpsert publishes v on id's stream and recomputes every tracked
// query's cached list (spec.md §4.4 "Notify protocol").
func (h *Hub[ID, T]) NotifyUpsert(id ID, v T) {
	h.IDs.Publish(id, &v)

	h.Queries.Each(func(fp string, sink *Sink[[]T]) {
		h.mu.Lock()
		q := h.queryDef[fp]
		h.mu.Unlock()
		if q == nil {
			return
		}

		list, _ := sink.Current()
		updated := upsertByID(list, v, h.idOf)
		if query.Matches(q, h.accessor, v) {
			sink.Publish(updated)
		} else {
			sink.Publish(removeByID(list, h.idOf(v), h.idOf))
		}
	})
}

// NotifyDelete publishes None on id's stream and removes id from every
// tracked query's cached list (spec.md §4.4 "Notify protocol").
func (h *Hub[ID, T]) NotifyDelete(id ID) {
	var none *T
	h.IDs.Publish(id, none)

	h.Queries.Each(func(fp string, sink *Sink[[]T]) {
		list, ok := sink.Current()
		if !ok {
			return
		}
		sink.Publish(removeByID(list, id, h.idOf))
	})
}

// Sweep runs the idle-sink reaper on both registries.
func (h *Hub[ID, T]) Sweep() {
	h.IDs.Sweep()
	h.Queries.Sweep()
}

func upsertByID[ID comparable, T any](list []T, v T, idOf func(T) ID) []T {
	id := idOf(v)
	out := make([]T, 0, len(list)+1)
	replaced := false
	for _, item := range list {
		if idOf(item) == id {
			out = append(out, v)
			replaced = true
			continue
		}
		out = append(out, item)
	}
	if !replaced {
		out = append(out, v)
	}
	return out
}

func removeByID[ID comparable, T any](list []T, id ID, idOf func(T) ID) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if idOf(item) == id {
			continue
		}
		out = append(out, item)
	}
	return out
}
