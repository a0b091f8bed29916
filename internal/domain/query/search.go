package query

// MaxBuckets is the terms size used when every bucket is wanted.
const MaxBuckets = 1 << 30

// Search is a request against one index: a filter evaluated in filter
// context plus named aggregations.
type Search struct {
	Index string

	filter Filter
	query  Filter
	aggs   map[string]Aggregation
	size   int
	sort   []string
}

// NewSearch starts a request against index. Size defaults to 0 so only
// aggregations are returned.
func NewSearch(index string) *Search {
	return &Search{Index: index, aggs: map[string]Aggregation{}}
}

// Filter sets the non-scoring filter of the request.
func (s *Search) Filter(f Filter) *Search {
	s.filter = f
	return s
}

// Query sets a scoring query combined with the filter.
func (s *Search) Query(f Filter) *Search {
	s.query = f
	return s
}

// Agg adds a named top-level aggregation.
func (s *Search) Agg(name string, a Aggregation) *Search {
	s.aggs[name] = a
	return s
}

// Size sets the number of hits per page.
func (s *Search) Size(n int) *Search {
	s.size = n
	return s
}

// Sort orders hits by the given fields, ascending.
func (s *Search) Sort(fields ...string) *Search {
	s.sort = append(s.sort, fields...)
	return s
}

// SortFields returns the configured sort fields.
func (s *Search) SortFields() []string {
	return s.sort
}

// Body renders the request body.
func (s *Search) Body() map[string]any {
	boolQuery := map[string]any{}
	if s.filter != nil {
		boolQuery["filter"] = []map[string]any{s.filter.Source()}
	}
	if s.query != nil {
		boolQuery["must"] = []map[string]any{s.query.Source()}
	}

	body := map[string]any{
		"size":  s.size,
		"query": map[string]any{"bool": boolQuery},
	}
	if len(s.aggs) > 0 {
		aggs := make(map[string]any, len(s.aggs))
		for name, a := range s.aggs {
			aggs[name] = a.Source()
		}
		body["aggs"] = aggs
	}
	if len(s.sort) > 0 {
		sort := make([]map[string]any, 0, len(s.sort))
		for _, field := range s.sort {
			sort = append(sort, map[string]any{field: map[string]any{"order": "asc"}})
		}
		body["sort"] = sort
	}
	return body
}
