package cachemeta

import (
	"context"

	"github.com/unfazed-dev/nexus-store/pkg/query"
)

// InvalidateWhere iterates the tracked id set, fetches each candidate via
// fetch, and invalidates ids whose fetched value satisfies q. This is O(N)
// per call; spec.md §4.3 and §9 call this out as tolerable only because the
// path is explicit and user-triggered, not a candidate for a payload
// shadow optimization.
func InvalidateWhere[ID comparable, T any](
	ctx context.Context,
	idx *Index[ID],
	q *query.Query,
	accessor query.FieldAccessor[T],
	fetch func(ctx context.Context, id ID) (*T, error),
) error {
	for _, id := range idx.TrackedIDs() {
		item, err := fetch(ctx, id)
		if err != nil || item == nil {
			continue
		}
		if query.Matches(q, accessor, *item) {
			idx.Invalidate(id)
		}
	}
	return nil
}
