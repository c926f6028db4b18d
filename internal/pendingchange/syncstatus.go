package pendingchange

import "github.com/unfazed-dev/nexus-store/pkg/backend"

// DeriveSyncStatus computes the store-level sync-status FSM from a queue
// status snapshot and the outcome of the last backend sync call (spec.md
// §4.5 "Sync-status FSM"). paused overrides every other state and is set
// externally, not derived here.
func DeriveSyncStatus(counts map[Status]int, lastSyncOK bool, draining bool) backend.SyncStatus {
	if counts[StatusConflicting] > 0 {
		return backend.SyncStatusConflict
	}
	if draining {
		return backend.SyncStatusSyncing
	}
	total := counts[StatusQueued] + counts[StatusInFlight] + counts[StatusFailed]
	if total == 0 {
		if lastSyncOK {
			return backend.SyncStatusSynced
		}
		return backend.SyncStatusError
	}
	if counts[StatusFailed] == total {
		return backend.SyncStatusError
	}
	return backend.SyncStatusPending
}
