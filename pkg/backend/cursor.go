package backend

import (
	"strconv"

	"github.com/unfazed-dev/nexus-store/pkg/query"
)

// CursorToken encodes an offset-based Cursor as the opaque string token
// carried in query.Query.After/Before. Backends with a key-set sort order
// are free to encode their own token
// format instead; this helper only covers the offset case every reference
// backend in this repo actually uses.
func CursorToken(idx int64) string {
	return strconv.FormatInt(idx, 10)
}

// ParseCursorToken decodes a token produced by CursorToken. An invalid or
// empty token reports ok=false; callers treat that the same as "no cursor".
func ParseCursorToken(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	idx, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Window resolves a Query's first/after/last/before pagination fields
// against a result set of the given total length, returning the half-open
// [start, end) slice bounds plus whether a previous/next page exists. A
// cursor positioned beyond the data reports hasNextPage=false; omitting
// first(n) returns the whole set.
func Window(total int, q *query.Query) (start, end int, hasPrev, hasNext bool) {
	if q == nil {
		return 0, total, false, false
	}

	switch {
	case q.First > 0:
		start = 0
		if after, ok := ParseCursorToken(derefStr(q.After)); ok && after >= 0 {
			start = int(after) + 1
		}
		if start > total {
			start = total
		}
		end = start + q.First
		if end > total {
			end = total
		}
		hasPrev = start > 0
		hasNext = end < total
		return start, end, hasPrev, hasNext

	case q.Last > 0:
		end = total
		if before, ok := ParseCursorToken(derefStr(q.Before)); ok && before >= 0 {
			end = int(before)
		}
		if end < 0 {
			end = 0
		}
		start = end - q.Last
		if start < 0 {
			start = 0
		}
		hasPrev = start > 0
		hasNext = end < total
		return start, end, hasPrev, hasNext

	default:
		return 0, total, false, false
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BuildPageInfo constructs the PageInfo for a page spanning [start, end) of
// a total-length result set, with StartCursor/EndCursor set to the offset
// cursor of the first/last item actually returned.
func BuildPageInfo(start, end, total int, hasPrev, hasNext bool) PageInfo {
	info := PageInfo{
		HasNextPage:     hasNext,
		HasPreviousPage: hasPrev,
		TotalCount:      &total,
	}
	if end > start {
		startIdx := int64(start)
		endIdx := int64(end - 1)
		info.StartCursor = &Cursor{Index: &startIdx}
		info.EndCursor = &Cursor{Index: &endIdx}
	}
	return info
}
