// Package query implements the engine's Query value, its FieldAccessor
// evaluator, and the stable fingerprint used to key per-query reactive
// subscriptions (spec.md §3, §6.3). The chainable filter builder mirrors
// the QueryBuilder in the service_layer project's
// infrastructure/database/generic_repository.go, generalized from a
// PostgREST filter string to an in-memory predicate list.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Operator is one of the comparison operators a FieldAccessor must support.
type Operator string

const (
	OpEq         Operator = "=="
	OpNe         Operator = "!="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpIsNull     Operator = "isNull"
	OpIsNotNull  Operator = "isNotNull"
	OpStartsWith Operator = "startsWith"
	OpContains   Operator = "contains"
)

// Filter is a single (field, operator, operand) predicate.
type Filter struct {
	Field    string
	Op       Operator
	Operand  interface{}
	Operands []interface{} // used by OpIn / OpNotIn
}

// SortKey is one (field, ascending) ordering term.
type SortKey struct {
	Field     string
	Ascending bool
}

// Query is an immutable value bundling filters, sort keys, a limit/offset,
// and an optional cursor anchor. Two queries are equal iff all fields
// compare equal (spec.md §3).
type Query struct {
	Filters []Filter
	Sort    []SortKey
	Limit   int
	Offset  int
	// First/After/Before implement the pagination protocol (spec.md §6.2);
	// at most one of (First,Last) and one of (After,Before) is set.
	First  int
	Last   int
	After  *string // opaque cursor token, backend-defined encoding
	Before *string
}

// New starts an empty, immutable-by-convention Query builder.
func New() *Query {
	return &Query{}
}

func (q *Query) clone() *Query {
	cp := *q
	cp.Filters = append([]Filter(nil), q.Filters...)
	cp.Sort = append([]SortKey(nil), q.Sort...)
	return &cp
}

// Eq adds an equality filter and returns a new Query (builder methods never
// mutate the receiver, keeping Query values safe to share).
func (q *Query) Eq(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpEq, Operand: value})
}

func (q *Query) Ne(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpNe, Operand: value})
}

func (q *Query) Lt(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpLt, Operand: value})
}

func (q *Query) Lte(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpLte, Operand: value})
}

func (q *Query) Gt(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpGt, Operand: value})
}

func (q *Query) Gte(field string, value interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpGte, Operand: value})
}

func (q *Query) In(field string, values ...interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpIn, Operands: values})
}

func (q *Query) NotIn(field string, values ...interface{}) *Query {
	return q.addFilter(Filter{Field: field, Op: OpNotIn, Operands: values})
}

func (q *Query) IsNull(field string) *Query {
	return q.addFilter(Filter{Field: field, Op: OpIsNull})
}

func (q *Query) IsNotNull(field string) *Query {
	return q.addFilter(Filter{Field: field, Op: OpIsNotNull})
}

func (q *Query) StartsWith(field string, prefix string) *Query {
	return q.addFilter(Filter{Field: field, Op: OpStartsWith, Operand: prefix})
}

func (q *Query) Contains(field string, substr string) *Query {
	return q.addFilter(Filter{Field: field, Op: OpContains, Operand: substr})
}

func (q *Query) addFilter(f Filter) *Query {
	cp := q.clone()
	cp.Filters = append(cp.Filters, f)
	return cp
}

// OrderBy appends a sort key in the given order; sort keys are evaluated in
// the order they were added.
func (q *Query) OrderBy(field string, ascending bool) *Query {
	cp := q.clone()
	cp.Sort = append(cp.Sort, SortKey{Field: field, Ascending: ascending})
	return cp
}

// WithLimit sets a page limit.
func (q *Query) WithLimit(n int) *Query {
	cp := q.clone()
	cp.Limit = n
	return cp
}

// WithOffset sets a page offset.
func (q *Query) WithOffset(n int) *Query {
	cp := q.clone()
	cp.Offset = n
	return cp
}

// WithFirst requests the first n items after an optional cursor (spec.md §6.2).
func (q *Query) WithFirst(n int) *Query {
	cp := q.clone()
	cp.First = n
	cp.Last = 0
	cp.Before = nil
	return cp
}

// WithAfter anchors forward pagination after the given cursor.
func (q *Query) WithAfter(cursor string) *Query {
	cp := q.clone()
	cp.After = &cursor
	return cp
}

// WithLast requests the last n items before an optional cursor.
func (q *Query) WithLast(n int) *Query {
	cp := q.clone()
	cp.Last = n
	cp.First = 0
	cp.After = nil
	return cp
}

// WithBefore anchors backward pagination before the given cursor.
func (q *Query) WithBefore(cursor string) *Query {
	cp := q.clone()
	cp.Before = &cursor
	return cp
}

// Fingerprint returns a stable hash over the normalized query form: filters
// sorted canonically, sort keys kept in the given order (spec.md §3). It
// keys the per-query reactive subscription registry (§4.4).
func (q *Query) Fingerprint() string {
	if q == nil {
		return "empty"
	}
	filters := append([]Filter(nil), q.Filters...)
	sort.Slice(filters, func(i, j int) bool {
		if filters[i].Field != filters[j].Field {
			return filters[i].Field < filters[j].Field
		}
		return filters[i].Op < filters[j].Op
	})

	var sb strings.Builder
	for _, f := range filters {
		fmt.Fprintf(&sb, "f:%s|%s|%v|%v;", f.Field, f.Op, f.Operand, f.Operands)
	}
	for _, s := range q.Sort {
		fmt.Fprintf(&sb, "s:%s|%v;", s.Field, s.Ascending)
	}
	fmt.Fprintf(&sb, "lim:%d;off:%d;first:%d;last:%d;", q.Limit, q.Offset, q.First, q.Last)
	if q.After != nil {
		fmt.Fprintf(&sb, "after:%s;", *q.After)
	}
	if q.Before != nil {
		fmt.Fprintf(&sb, "before:%s;", *q.Before)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
