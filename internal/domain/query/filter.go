package query

import "time"

// Filter is a boolean predicate over accounting records. Each variant renders
// itself into the search backend's native query DSL.
type Filter interface {
	Source() map[string]any
}

// TimeLayout is the layout used when a time.Time is sent as a range bound.
const TimeLayout = "2006-01-02T15:04:05Z07:00"

type termFilter struct {
	field string
	value any
}

// Term matches records whose field equals value exactly.
func Term(field string, value any) Filter {
	return termFilter{field: field, value: value}
}

func (f termFilter) Source() map[string]any {
	return map[string]any{"term": map[string]any{f.field: f.value}}
}

type termsFilter struct {
	field  string
	values []string
}

// Terms matches records whose field equals any of values.
func Terms(field string, values ...string) Filter {
	vs := make([]string, len(values))
	copy(vs, values)
	return termsFilter{field: field, values: vs}
}

func (f termsFilter) Source() map[string]any {
	return map[string]any{"terms": map[string]any{f.field: f.values}}
}

type wildcardFilter struct {
	field   string
	pattern string
}

// Wildcard matches records whose field matches a glob pattern.
func Wildcard(field, pattern string) Filter {
	return wildcardFilter{field: field, pattern: pattern}
}

func (f wildcardFilter) Source() map[string]any {
	return map[string]any{"wildcard": map[string]any{f.field: f.pattern}}
}

type matchFilter struct {
	field string
	value string
}

// Match runs a full-text match query. On ".keyword" sub-fields it behaves as
// an exact match.
func Match(field, value string) Filter {
	return matchFilter{field: field, value: value}
}

func (f matchFilter) Source() map[string]any {
	return map[string]any{"match": map[string]any{f.field: f.value}}
}

// RangeFilter bounds a numeric or date field. Zero or more bounds may be set.
type RangeFilter struct {
	field  string
	bounds map[string]any
}

// Range starts a range filter on field. Chain Gte/Gt/Lt/Lte to add bounds.
func Range(field string) *RangeFilter {
	return &RangeFilter{field: field, bounds: map[string]any{}}
}

// Gte sets an inclusive lower bound.
func (f *RangeFilter) Gte(v any) *RangeFilter { return f.set("gte", v) }

// Gt sets an exclusive lower bound.
func (f *RangeFilter) Gt(v any) *RangeFilter { return f.set("gt", v) }

// Lt sets an exclusive upper bound.
func (f *RangeFilter) Lt(v any) *RangeFilter { return f.set("lt", v) }

// Lte sets an inclusive upper bound.
func (f *RangeFilter) Lte(v any) *RangeFilter { return f.set("lte", v) }

func (f *RangeFilter) set(op string, v any) *RangeFilter {
	if t, ok := v.(time.Time); ok {
		v = t.UTC().Format(TimeLayout)
	}
	f.bounds[op] = v
	return f
}

func (f *RangeFilter) Source() map[string]any {
	bounds := make(map[string]any, len(f.bounds))
	for k, v := range f.bounds {
		bounds[k] = v
	}
	return map[string]any{"range": map[string]any{f.field: bounds}}
}

type andFilter struct {
	filters []Filter
}

// And requires every filter to match. Nested Ands are flattened and nil
// filters are dropped.
func And(filters ...Filter) Filter {
	var flat []Filter
	for _, f := range filters {
		switch v := f.(type) {
		case nil:
			continue
		case andFilter:
			flat = append(flat, v.filters...)
		default:
			flat = append(flat, f)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return andFilter{filters: flat}
}

func (f andFilter) Source() map[string]any {
	return map[string]any{"bool": map[string]any{"must": sources(f.filters)}}
}

type orFilter struct {
	filters []Filter
}

// Or requires at least one filter to match.
func Or(filters ...Filter) Filter {
	var flat []Filter
	for _, f := range filters {
		switch v := f.(type) {
		case nil:
			continue
		case orFilter:
			flat = append(flat, v.filters...)
		default:
			flat = append(flat, f)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return orFilter{filters: flat}
}

func (f orFilter) Source() map[string]any {
	return map[string]any{"bool": map[string]any{
		"should":               sources(f.filters),
		"minimum_should_match": 1,
	}}
}

type notFilter struct {
	filter Filter
}

// Not negates a filter.
func Not(f Filter) Filter {
	return notFilter{filter: f}
}

func (f notFilter) Source() map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []map[string]any{f.filter.Source()}}}
}

func sources(filters []Filter) []map[string]any {
	out := make([]map[string]any, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Source())
	}
	return out
}
