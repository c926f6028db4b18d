package reliability

import (
	"github.com/unfazed-dev/nexus-store/pkg/backend"
	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

// FetchFallback implements the read-side half of graceful degradation
// (spec.md §4.7 "When open, read policies that permit cache fallback
// return cached data with SyncStatus.error; ... intolerant policies fail
// fast."). cached/hasCached is the last known value; permitsFallback is
// true for every fetch policy except networkOnly (spec.md §4.2).
func FetchFallback[T any](cached *T, hasCached bool, permitsFallback bool, breakerErr error) (*T, backend.SyncStatus, error) {
	if !permitsFallback || !hasCached {
		return nil, backend.SyncStatusError, breakerErr
	}
	return cached, backend.SyncStatusError, nil
}

// WriteFallback implements the write-side half (spec.md §4.7 "write
// policies that tolerate offline operation enqueue to the pending-change
// machine; intolerant policies fail fast."). tolerant mirrors cacheFirst
// and cacheOnly write policies (spec.md §4.2); networkFirst and
// cacheAndNetwork are intolerant since both require a synchronous sync.
func WriteFallback(tolerant bool, breakerErr error) error {
	if tolerant {
		return nil
	}
	if se := storeerrors.As(breakerErr); se != nil {
		return se
	}
	return storeerrors.Wrap(storeerrors.CodeCircuitOpen, "backend unavailable", breakerErr)
}
