package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldAccessor maps a field name to a comparable value for an entity of
// type T (spec.md §6.3). Consumers hand-write one per entity type, or
// generate it; the engine only ever calls through this interface.
type FieldAccessor[T any] interface {
	Field(item T, name string) (interface{}, bool)
}

// FieldAccessorFunc adapts a plain function to FieldAccessor.
type FieldAccessorFunc[T any] func(item T, name string) (interface{}, bool)

func (f FieldAccessorFunc[T]) Field(item T, name string) (interface{}, bool) {
	return f(item, name)
}

// Matches reports whether item satisfies every filter in q (used by
// invalidateWhere (§4.3) and by client-side query-stream filtering (§4.4)).
func Matches[T any](q *Query, accessor FieldAccessor[T], item T) bool {
	if q == nil {
		return true
	}
	for _, f := range q.Filters {
		if !matchesFilter(f, accessor, item) {
			return false
		}
	}
	return true
}

func matchesFilter[T any](f Filter, accessor FieldAccessor[T], item T) bool {
	value, present := accessor.Field(item, f.Field)

	switch f.Op {
	case OpIsNull:
		return !present || isNil(value)
	case OpIsNotNull:
		return present && !isNil(value)
	}

	if !present {
		return false
	}

	switch f.Op {
	case OpEq:
		return compare(value, f.Operand) == 0
	case OpNe:
		return compare(value, f.Operand) != 0
	case OpLt:
		return compare(value, f.Operand) < 0
	case OpLte:
		return compare(value, f.Operand) <= 0
	case OpGt:
		return compare(value, f.Operand) > 0
	case OpGte:
		return compare(value, f.Operand) >= 0
	case OpIn:
		for _, o := range f.Operands {
			if compare(value, o) == 0 {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, o := range f.Operands {
			if compare(value, o) == 0 {
				return false
			}
		}
		return true
	case OpStartsWith:
		s, ok1 := value.(string)
		prefix, ok2 := f.Operand.(string)
		return ok1 && ok2 && strings.HasPrefix(s, prefix)
	case OpContains:
		s, ok1 := value.(string)
		substr, ok2 := f.Operand.(string)
		return ok1 && ok2 && strings.Contains(s, substr)
	default:
		return false
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// compare returns -1/0/1 comparing a and b. Numeric kinds compare
// numerically, everything else falls back to string comparison of their
// fmt representation so heterogeneous but coercible types (e.g. int vs
// float64 from a dynamic accessor) still behave sensibly.
func compare(a, b interface{}) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := toString(a), toString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			return rv.Float(), true
		}
		return 0, false
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Sort orders items in place per q.Sort, honoring the null-ordering
// invariant from spec.md §6.3: nulls sort first for ascending, last for
// descending.
func Sort[T any](items []T, q *Query, accessor FieldAccessor[T]) {
	if q == nil || len(q.Sort) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range q.Sort {
			vi, pi := accessor.Field(items[i], key.Field)
			vj, pj := accessor.Field(items[j], key.Field)
			ni, nj := !pi || isNil(vi), !pj || isNil(vj)

			if ni && nj {
				continue
			}
			if ni != nj {
				if key.Ascending {
					return ni
				}
				return nj
			}

			c := compare(vi, vj)
			if c == 0 {
				continue
			}
			if key.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
