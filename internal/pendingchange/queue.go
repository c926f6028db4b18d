package pendingchange

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unfazed-dev/nexus-store/internal/clock"
	"github.com/unfazed-dev/nexus-store/internal/reactive"
)

// Queue is the FIFO pending-change queue with secondary indexes by entity
// id and by status (spec.md §4.5). All mutation goes through its exported
// methods; the queue owns the invariant that at most one change per entity
// id is in-flight at a time (spec.md §3 "PendingChange" invariants).
type Queue struct {
	mu     sync.Mutex
	clock  clock.Clock
	policy RetryPolicy

	order    []ChangeID // FIFO enqueue order
	byID     map[ChangeID]*Change
	byStatus map[Status]map[ChangeID]struct{}

	transitions *reactive.Sink[Transition]
	conflicts   *reactive.Sink[ConflictDetails]
}

// Transition is one status-change event, published on the queue's
// append-only transitions stream (spec.md §4.5 "an append-only stream of
// status transitions").
type Transition struct {
	ChangeID ChangeID
	EntityID interface{}
	From     Status
	To       Status
	At       time.Time
}

// NewQueue creates an empty Queue.
func NewQueue(c clock.Clock, policy RetryPolicy) *Queue {
	q := &Queue{
		clock:       c,
		policy:      policy,
		byID:        make(map[ChangeID]*Change),
		byStatus:    make(map[Status]map[ChangeID]struct{}),
		transitions: reactive.NewSink[Transition](),
		conflicts:   reactive.NewSink[ConflictDetails](),
	}
	for _, s := range []Status{StatusQueued, StatusInFlight, StatusFailed, StatusConflicting} {
		q.byStatus[s] = make(map[ChangeID]struct{})
	}
	return q
}

// Enqueue appends a new change to the tail of the queue in status queued
// and returns its generated id.
func (q *Queue) Enqueue(entityID interface{}, kind ChangeKind, payload interface{}) ChangeID {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := ChangeID(uuid.NewString())
	now := q.clock.Now()
	c := &Change{
		ID:          id,
		EntityID:    entityID,
		Kind:        kind,
		Payload:     payload,
		EnqueuedAt:  now,
		NextAttempt: now,
		Status:      StatusQueued,
	}
	q.order = append(q.order, id)
	q.byID[id] = c
	q.byStatus[StatusQueued][id] = struct{}{}
	q.publishTransition(c, "", StatusQueued, now)
	return id
}

// Dequeue returns the next change ready to attempt: the earliest-enqueued
// queued or failed change whose NextAttempt has elapsed and whose entity
// id has no other in-flight change, transitioning it to in-flight. It
// returns false if nothing is currently eligible.
func (q *Queue) Dequeue() (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	for _, id := range q.order {
		c, ok := q.byID[id]
		if !ok {
			continue
		}
		if c.Status != StatusQueued && c.Status != StatusFailed {
			continue
		}
		if now.Before(c.NextAttempt) {
			continue
		}
		if q.entityHasInFlight(c.EntityID, id) {
			continue
		}

		from := c.Status
		q.setStatus(c, StatusInFlight, now)
		q.publishTransition(c, from, StatusInFlight, now)
		return *c, true
	}
	return Change{}, false
}

func (q *Queue) entityHasInFlight(entityID interface{}, excluding ChangeID) bool {
	for id := range q.byStatus[StatusInFlight] {
		if id == excluding {
			continue
		}
		if c, ok := q.byID[id]; ok && c.EntityID == entityID {
			return true
		}
	}
	return false
}

// MarkSynced removes a change from the queue entirely (spec.md §4.5
// "synced (removed)").
func (q *Queue) MarkSynced(id ChangeID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.byID[id]
	if !ok {
		return
	}
	from := c.Status
	now := q.clock.Now()
	q.removeLocked(id)
	q.publishTransition(c, from, "", now)
}

// MarkFailed transitions an in-flight change to failed, recording err and
// scheduling its next retry per the queue's RetryPolicy.
func (q *Queue) MarkFailed(id ChangeID, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.byID[id]
	if !ok {
		return
	}
	from := c.Status
	now := q.clock.Now()
	c.Attempts++
	c.LastError = err
	c.NextAttempt = now.Add(q.policy.NextDelay(c.Attempts - 1))
	q.setStatus(c, StatusFailed, now)
	q.publishTransition(c, from, StatusFailed, now)
}

// MarkConflicting transitions an in-flight change to conflicting and
// publishes details on the conflicts stream (spec.md §4.5 "Conflict
// surface").
func (q *Queue) MarkConflicting(id ChangeID, details ConflictDetails) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.byID[id]
	if !ok {
		return
	}
	from := c.Status
	now := q.clock.Now()
	q.setStatus(c, StatusConflicting, now)
	q.publishTransition(c, from, StatusConflicting, now)
	q.conflicts.Publish(details)
}

// Retry moves a failed or conflicting change back to queued, ready for
// immediate reattempt. If replacement is non-nil, it replaces the
// change's payload first (spec.md §4.5 "custom pauses ... until the
// consumer calls retry with an explicit replacement").
func (q *Queue) Retry(id ChangeID, replacement interface{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.byID[id]
	if !ok || (c.Status != StatusFailed && c.Status != StatusConflicting) {
		return false
	}
	from := c.Status
	now := q.clock.Now()
	if replacement != nil {
		c.Payload = replacement
	}
	c.NextAttempt = now
	q.setStatus(c, StatusQueued, now)
	q.publishTransition(c, from, StatusQueued, now)
	return true
}

// Cancel removes a change from the queue regardless of its current status.
func (q *Queue) Cancel(id ChangeID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.byID[id]
	if !ok {
		return false
	}
	from := c.Status
	now := q.clock.Now()
	q.removeLocked(id)
	q.publishTransition(c, from, "", now)
	return true
}

// Conflicts returns every change currently in conflicting status.
func (q *Queue) Conflicts() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Change
	for id := range q.byStatus[StatusConflicting] {
		out = append(out, *q.byID[id])
	}
	return out
}

// Status returns a snapshot count of changes per status, used to derive
// the store-level sync-status FSM (spec.md §4.5 "Sync-status FSM").
func (q *Queue) Status() map[Status]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[Status]int, len(q.byStatus))
	for s, ids := range q.byStatus {
		out[s] = len(ids)
	}
	return out
}

// Count returns the total number of changes still tracked (queued,
// in-flight, failed, or conflicting) — the store facade's
// pendingChangesCount (spec.md §4.1).
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byID)
}

// Get returns the change with the given id, if tracked.
func (q *Queue) Get(id ChangeID) (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	c, ok := q.byID[id]
	if !ok {
		return Change{}, false
	}
	return *c, true
}

// Transitions subscribes to the append-only status-transition stream.
func (q *Queue) Transitions() *reactive.Subscription[Transition] {
	return q.transitions.Subscribe()
}

// ConflictStream subscribes to the conflicts stream.
func (q *Queue) ConflictStream() *reactive.Subscription[ConflictDetails] {
	return q.conflicts.Subscribe()
}

func (q *Queue) setStatus(c *Change, to Status, now time.Time) {
	delete(q.byStatus[c.Status], c.ID)
	c.Status = to
	q.byStatus[to][c.ID] = struct{}{}
}

func (q *Queue) removeLocked(id ChangeID) {
	c, ok := q.byID[id]
	if !ok {
		return
	}
	delete(q.byStatus[c.Status], id)
	delete(q.byID, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) publishTransition(c *Change, from, to Status, at time.Time) {
	q.transitions.Publish(Transition{ChangeID: c.ID, EntityID: c.EntityID, From: from, To: to, At: at})
}
