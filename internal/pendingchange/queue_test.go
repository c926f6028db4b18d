package pendingchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/clock"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEnqueueDequeueTransitionsToInFlight(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	id := q.Enqueue("u1", KindUpsert, "payload-A")

	ch, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected a dequeueable change")
	}
	if ch.ID != id || ch.Status != StatusInFlight {
		t.Errorf("ch = %+v, want in-flight %s", ch, id)
	}
}

func TestAtMostOneInFlightPerEntity(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	q.Enqueue("u1", KindUpsert, "A")
	q.Enqueue("u1", KindUpsert, "B")

	first, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected first dequeue to succeed")
	}
	if first.Payload != "A" {
		t.Errorf("first.Payload = %v, want A", first.Payload)
	}

	_, ok = q.Dequeue()
	if ok {
		t.Error("second dequeue for the same entity must not return while the first is in-flight")
	}

	q.MarkSynced(first.ID)
	second, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected second dequeue to succeed after first synced")
	}
	if second.Payload != "B" {
		t.Errorf("second.Payload = %v, want B", second.Payload)
	}
}

func TestMarkFailedSchedulesNextAttempt(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, RetryPolicy{BaseDelay: time.Second, MaxAttempts: 5, Factor: 2, Jitter: 0, MaxDelay: time.Minute})

	id := q.Enqueue("u1", KindUpsert, "A")
	ch, _ := q.Dequeue()
	q.MarkFailed(ch.ID, errors.New("boom"))

	if _, ok := q.Dequeue(); ok {
		t.Error("failed change with a future NextAttempt must not be dequeued yet")
	}

	c.Advance(2 * time.Second)
	retried, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected the failed change to become dequeueable once NextAttempt elapses")
	}
	if retried.ID != id {
		t.Errorf("retried.ID = %s, want %s", retried.ID, id)
	}
	if retried.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", retried.Attempts)
	}
}

func TestMarkConflictingPublishesConflictDetails(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	id := q.Enqueue("u1", KindUpsert, "A")
	ch, _ := q.Dequeue()

	sub := q.ConflictStream()
	defer sub.Close()

	q.MarkConflicting(ch.ID, ConflictDetails{ChangeID: ch.ID, EntityID: "u1", LocalPayload: "A", RemotePayload: "B", Reason: "version mismatch"})

	got := q.Conflicts()
	if len(got) != 1 || got[0].ID != id {
		t.Errorf("Conflicts() = %+v, want one entry for %s", got, id)
	}
}

func TestRetryWithReplacementPayload(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	id := q.Enqueue("u1", KindUpsert, "A")
	ch, _ := q.Dequeue()
	q.MarkConflicting(ch.ID, ConflictDetails{ChangeID: ch.ID, EntityID: "u1"})

	if !q.Retry(ch.ID, "merged-value") {
		t.Fatal("Retry should succeed from conflicting")
	}

	retried, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected the retried change to be dequeueable")
	}
	if retried.Payload != "merged-value" {
		t.Errorf("Payload = %v, want merged-value", retried.Payload)
	}
}

func TestCancelRemovesChange(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	id := q.Enqueue("u1", KindUpsert, "A")
	if !q.Cancel(id) {
		t.Fatal("Cancel should succeed")
	}
	if q.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after cancel", q.Count())
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("cancelled change must not be dequeueable")
	}
}

func TestMarkSyncedRemovesChangeAndFreesEntity(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	id := q.Enqueue("u1", KindUpsert, "A")
	ch, _ := q.Dequeue()
	q.MarkSynced(ch.ID)

	if q.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after sync", q.Count())
	}
	if _, ok := q.Get(id); ok {
		t.Error("synced change should no longer be tracked")
	}
}

func TestStatusSnapshotCounts(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	q.Enqueue("u1", KindUpsert, "A")
	q.Enqueue("u2", KindUpsert, "B")
	ch, _ := q.Dequeue()
	q.MarkFailed(ch.ID, errors.New("x"))

	snap := q.Status()
	if snap[StatusFailed] != 1 {
		t.Errorf("Status()[failed] = %d, want 1", snap[StatusFailed])
	}
	if snap[StatusQueued] != 1 {
		t.Errorf("Status()[queued] = %d, want 1", snap[StatusQueued])
	}
}

func TestTransitionsStreamObservesStatusChanges(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	q := NewQueue(c, DefaultRetryPolicy())

	sub := q.Transitions()
	defer sub.Close()

	id := q.Enqueue("u1", KindUpsert, "A")

	tr, err := sub.Next(testCtx(t))
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tr.ChangeID != id || tr.To != StatusQueued {
		t.Errorf("tr = %+v, want To=queued for %s", tr, id)
	}
}
