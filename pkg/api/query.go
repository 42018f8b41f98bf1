package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	OpEqual Op = "eq"
	OpIn    Op = "in"
	OpSet   Op = "set"
)

// InSuffix marks a field whose value is a comma-joined membership list.
const InSuffix = "__in"

// Filter is one (field, operator, value) predicate of a Query.
type Filter struct {
	Field  string
	Op     Op
	Values []string
}

// Key is the query parameter name the filter is sent under.
func (f Filter) Key() string {
	if f.Op == OpIn && !strings.HasSuffix(f.Field, InSuffix) {
		return f.Field + InSuffix
	}
	return f.Field
}

// Value is the query parameter value the filter is sent with.
func (f Filter) Value() string {
	return strings.Join(f.Values, ",")
}

func (f Filter) String() string {
	return f.Key() + "=" + f.Value()
}

// Query accumulates filters for a remote listing call.
//
// Every builder call appends exactly one filter and returns the same
// Query so calls can be chained. Nothing is validated or de-duplicated.
type Query struct {
	filters []Filter
}

// NewQuery returns an empty Query.
func NewQuery() *Query {
	return &Query{}
}

// Equal adds an equality filter.
func (q *Query) Equal(field string, value any) *Query {
	return q.add(field, OpEqual, []string{stringify(value)})
}

// In adds a membership filter. The field is sent with the "__in" suffix.
func (q *Query) In(field string, values ...any) *Query {
	vs := make([]string, 0, len(values))
	for _, v := range values {
		vs = append(vs, stringify(v))
	}
	return q.add(field, OpIn, vs)
}

// Set adds a filter with the "set" operator, which is sent the same way
// as an equality filter.
func (q *Query) Set(field string, value any) *Query {
	return q.add(field, OpSet, []string{stringify(value)})
}

func (q *Query) add(field string, op Op, values []string) *Query {
	q.filters = append(q.filters, Filter{Field: field, Op: op, Values: values})
	return q
}

// Filters returns a copy of the accumulated filters in insertion order.
// A nil Query has no filters.
func (q *Query) Filters() []Filter {
	if q == nil {
		return nil
	}
	out := make([]Filter, len(q.filters))
	for i, f := range q.filters {
		out[i] = Filter{
			Field:  f.Field,
			Op:     f.Op,
			Values: append([]string(nil), f.Values...),
		}
	}
	return out
}

// Len returns the number of filters.
func (q *Query) Len() int {
	if q == nil {
		return 0
	}
	return len(q.filters)
}

// Clone returns an independent copy of q.
func (q *Query) Clone() *Query {
	return &Query{filters: q.Filters()}
}

// Encode renders the filters as an URL query string, keeping insertion
// order.
func (q *Query) Encode() string {
	return EncodeFilters(q.Filters())
}

// EncodeFilters renders filters as an URL query string, keeping order.
func EncodeFilters(filters []Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, url.QueryEscape(f.Key())+"="+url.QueryEscape(f.Value()))
	}
	return strings.Join(parts, "&")
}

func (q *Query) String() string {
	if q.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.filters))
	for _, f := range q.filters {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "&")
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}
