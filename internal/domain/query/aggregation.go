package query

// Aggregation renders one named aggregation of a search request.
type Aggregation interface {
	Source() map[string]any
}

// MetricAgg is a single-value metric aggregation (sum, cardinality).
type MetricAgg struct {
	kind    string
	field   string
	missing any
}

// SumAgg sums a numeric field.
func SumAgg(field string) *MetricAgg {
	return &MetricAgg{kind: "sum", field: field}
}

// CardinalityAgg counts distinct values of a field.
func CardinalityAgg(field string) *MetricAgg {
	return &MetricAgg{kind: "cardinality", field: field}
}

// Missing sets the value used for documents lacking the field.
func (a *MetricAgg) Missing(v any) *MetricAgg {
	a.missing = v
	return a
}

func (a *MetricAgg) Source() map[string]any {
	body := map[string]any{"field": a.field}
	if a.missing != nil {
		body["missing"] = a.missing
	}
	return map[string]any{a.kind: body}
}

// BucketAgg is a multi-bucket aggregation that may carry sub-aggregations.
type BucketAgg struct {
	kind string
	body map[string]any
	subs map[string]Aggregation
}

// TermsAgg buckets records by the distinct values of field.
func TermsAgg(field string, size int) *BucketAgg {
	return &BucketAgg{
		kind: "terms",
		body: map[string]any{"field": field, "size": size},
		subs: map[string]Aggregation{},
	}
}

// DateHistogramAgg buckets records by calendar interval ("1d", "1M").
func DateHistogramAgg(field, interval string) *BucketAgg {
	return &BucketAgg{
		kind: "date_histogram",
		body: map[string]any{"field": field, "calendar_interval": interval},
		subs: map[string]Aggregation{},
	}
}

// Sub attaches a named sub-aggregation and returns the receiver.
func (a *BucketAgg) Sub(name string, agg Aggregation) *BucketAgg {
	a.subs[name] = agg
	return a
}

func (a *BucketAgg) Source() map[string]any {
	body := make(map[string]any, len(a.body))
	for k, v := range a.body {
		body[k] = v
	}
	src := map[string]any{a.kind: body}
	if len(a.subs) > 0 {
		aggs := make(map[string]any, len(a.subs))
		for name, sub := range a.subs {
			aggs[name] = sub.Source()
		}
		src["aggs"] = aggs
	}
	return src
}
