package reactive

import (
	"context"
	"testing"
	"time"

	"github.com/unfazed-dev/nexus-store/internal/clock"
)

func TestRegistryWatchSeedsFromCallback(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, time.Minute)

	sub := r.Watch("k1", func() (int, bool) { return 99, true })
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v != 99 {
		t.Errorf("v = %d, want 99", v)
	}
}

func TestRegistryWatchPrefersExistingValueOverSeed(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, time.Minute)

	r.Publish("k1", 1)
	sub := r.Watch("k1", func() (int, bool) { return 99, true })
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v != 1 {
		t.Errorf("v = %d, want 1 (existing sink value, seed must not override)", v)
	}
}

func TestRegistryEachVisitsAllKeys(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, time.Minute)
	r.Publish("a", 1)
	r.Publish("b", 2)

	seen := map[string]int{}
	r.Each(func(key string, sink *Sink[int]) {
		v, _ := sink.Current()
		seen[key] = v
	})

	if seen["a"] != 1 || seen["b"] != 2 {
		t.Errorf("seen = %v, want a:1 b:2", seen)
	}
}

func TestRegistrySweepDropsIdleSinksAfterTimeout(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, 30*time.Second)

	sub := r.Watch("k1", nil)
	sub.Close()

	r.Sweep()
	if r.Size() != 1 {
		t.Fatalf("Size after first sweep = %d, want 1 (still within idle window)", r.Size())
	}

	c.Advance(31 * time.Second)
	r.Sweep()
	if r.Size() != 0 {
		t.Errorf("Size after idle timeout sweep = %d, want 0", r.Size())
	}
}

func TestRegistrySweepKeepsSinksWithActiveSubscribers(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, time.Second)

	sub := r.Watch("k1", nil)
	defer sub.Close()

	c.Advance(10 * time.Second)
	r.Sweep()
	if r.Size() != 1 {
		t.Errorf("Size = %d, want 1 (sink has an active subscriber)", r.Size())
	}
}

func TestRegistryRemoveDropsSinkImmediately(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	r := NewRegistry[string, int](c, time.Hour)
	r.Publish("k1", 1)

	r.Remove("k1")
	if r.Size() != 0 {
		t.Errorf("Size after Remove = %d, want 0", r.Size())
	}
}
