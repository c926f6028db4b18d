package reliability

import (
	"github.com/unfazed-dev/nexus-store/internal/reactive"
	"github.com/unfazed-dev/nexus-store/pkg/backend"
)

// HealthState aggregates circuit state, last sync outcome, pending-change
// count, and backend capability flags (spec.md §4.7 "Health API").
type HealthState struct {
	Breaker             BreakerState
	LastSyncOK          bool
	PendingChangesCount int
	Capabilities        backend.Capabilities
}

// HealthProbe computes and publishes HealthState transitions.
type HealthProbe struct {
	breaker *Breaker
	sink    *reactive.Sink[HealthState]
}

// NewHealthProbe builds a HealthProbe backed by breaker.
func NewHealthProbe(breaker *Breaker) *HealthProbe {
	return &HealthProbe{breaker: breaker, sink: reactive.NewSink[HealthState]()}
}

// Report computes the current HealthState from the given inputs and
// publishes it to subscribers (spec.md §4.7 "Consumers can subscribe to
// transitions.").
func (p *HealthProbe) Report(lastSyncOK bool, pendingChangesCount int, caps backend.Capabilities) HealthState {
	hs := HealthState{
		Breaker:             p.breaker.State(),
		LastSyncOK:          lastSyncOK,
		PendingChangesCount: pendingChangesCount,
		Capabilities:        caps,
	}
	p.sink.Publish(hs)
	return hs
}

// Subscribe returns a latest-value stream of HealthState transitions.
func (p *HealthProbe) Subscribe() *reactive.Subscription[HealthState] {
	return p.sink.Subscribe()
}
