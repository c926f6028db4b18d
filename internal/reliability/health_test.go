package reliability

import (
	"context"
	"testing"
	"time"

	"github.com/unfazed-dev/nexus-store/pkg/backend"
)

func TestHealthProbeAggregatesState(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	p := NewHealthProbe(b)

	sub := p.Subscribe()
	defer sub.Close()

	caps := backend.Capabilities{SupportsOffline: true}
	hs := p.Report(true, 2, caps)

	if hs.Breaker != StateClosed {
		t.Errorf("Breaker = %s, want closed", hs.Breaker)
	}
	if !hs.LastSyncOK || hs.PendingChangesCount != 2 || !hs.Capabilities.SupportsOffline {
		t.Errorf("hs = %+v, unexpected", hs)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.PendingChangesCount != 2 {
		t.Errorf("got.PendingChangesCount = %d, want 2", got.PendingChangesCount)
	}
}
