package pendingchange

// Resolver applies a ConflictResolution strategy to a conflicting change
// (spec.md §4.5 "Conflict surface"). Merge is the only strategy that needs
// a caller-supplied combiner; the others are mechanical.
type Resolver struct {
	Strategy ConflictResolution
	Merge    func(local, remote interface{}) interface{}
}

// Action is what the resolver decided to do with a conflicting change.
type Action string

const (
	ActionDrop  Action = "drop"  // serverWins: discard the local change
	ActionRetry Action = "retry" // resubmit, possibly with a new payload
	ActionWait  Action = "wait"  // custom: stays conflicting until an explicit Retry call
)

// Resolve decides an Action and, for ActionRetry, the payload to resubmit.
func (r Resolver) Resolve(details ConflictDetails) (Action, interface{}) {
	switch r.Strategy {
	case ResolveServerWins:
		return ActionDrop, nil

	case ResolveClientWins:
		// Re-submit the local payload; the backend is expected to honor a
		// forced-overwrite flag out of band (spec.md §4.5).
		return ActionRetry, details.LocalPayload

	case ResolveLatestWins:
		// The local write is, by construction, the most recent observation
		// the client made; without a comparable remote timestamp the
		// client's own pending change is the later one.
		return ActionRetry, details.LocalPayload

	case ResolveMerge:
		if r.Merge == nil {
			return ActionWait, nil
		}
		return ActionRetry, r.Merge(details.LocalPayload, details.RemotePayload)

	case ResolveCRDT:
		// The backend's merge already produced the resolved state; nothing
		// for the queue to resubmit.
		return ActionDrop, nil

	case ResolveCustom:
		fallthrough
	default:
		return ActionWait, nil
	}
}
