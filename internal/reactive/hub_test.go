package reactive

import (
	"context"
	"testing"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/clock"
	"github.com/unfazed-dev/nexus-store/pkg/query"
)

type widget struct {
	ID     string
	Status string
}

func widgetID(w widget) string { return w.ID }

var widgetAccessor = query.FieldAccessorFunc[widget](func(w widget, name string) (interface{}, bool) {
	switch name {
	case "status":
		return w.Status, true
	default:
		return nil, false
	}
})

func newTestHub(c clock.Clock) *Hub[string, widget] {
	return NewHub[string, widget](c, time.Minute, widgetAccessor, widgetID)
}

func TestHubNotifyUpsertPublishesOnIDStream(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	sub := h.WatchID("w1", func() (*widget, bool) { return nil, false })
	defer sub.Close()

	h.NotifyUpsert("w1", widget{ID: "w1", Status: "open"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v == nil || v.Status != "open" {
		t.Errorf("v = %+v, want status=open", v)
	}
}

func TestHubNotifyDeletePublishesNilOnIDStream(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	h.NotifyUpsert("w1", widget{ID: "w1", Status: "open"})
	sub := h.WatchID("w1", nil)
	defer sub.Close()

	h.NotifyDelete("w1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v != nil {
		t.Errorf("v = %+v, want nil after delete", v)
	}
}

func TestHubNotifyUpsertAddsMatchingEntityToQueryStream(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	q := query.New().Eq("status", "open")
	sub := h.WatchQuery(q, func() ([]widget, bool) { return []widget{}, true })
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// first Next returns the seeded empty list; second returns the update.
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Next (seed): %v", err)
	}
	h.NotifyUpsert("w1", widget{ID: "w1", Status: "open"})
	list, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next (update): %v", err)
	}
	if len(list) != 1 || list[0].ID != "w1" {
		t.Errorf("list = %+v, want [w1]", list)
	}
}

func TestHubNotifyUpsertOmitsNonMatchingEntityFromQueryStream(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	q := query.New().Eq("status", "open")
	sub := h.WatchQuery(q, func() ([]widget, bool) { return []widget{}, true })
	defer sub.Close()

	h.NotifyUpsert("w1", widget{ID: "w1", Status: "closed"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Next (seed): %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()
	_, err := sub.Next(ctx2)
	if err == nil {
		t.Error("expected no further publication for a non-matching upsert")
	}
}

func TestHubNotifyUpsertRemovesEntityThatStopsMatching(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	q := query.New().Eq("status", "open")
	sub := h.WatchQuery(q, func() ([]widget, bool) {
		return []widget{{ID: "w1", Status: "open"}}, true
	})
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Next (seed): %v", err)
	}
	h.NotifyUpsert("w1", widget{ID: "w1", Status: "closed"})
	list, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next (update): %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list = %+v, want empty after entity stops matching", list)
	}
}

func TestHubNotifyDeleteRemovesEntityFromQueryStream(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := newTestHub(c)

	q := query.New().Eq("status", "open")
	sub := h.WatchQuery(q, func() ([]widget, bool) {
		return []widget{{ID: "w1", Status: "open"}}, true
	})
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Next (seed): %v", err)
	}
	h.NotifyDelete("w1")
	list, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next (update): %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list = %+v, want empty after delete", list)
	}
}

func TestHubSweepDelegatesToBothRegistries(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	h := NewHub[string, widget](c, time.Second, widgetAccessor, widgetID)

	sub := h.WatchID("w1", nil)
	sub.Close()

	c.Advance(2 * time.Second)
	h.Sweep()
	if h.IDs.Size() != 0 {
		t.Errorf("IDs.Size() = %d, want 0 after sweep", h.IDs.Size())
	}
}
