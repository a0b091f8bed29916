package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestFilters_RenderNativeDSL(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	f := And(
		Range("EndTime").Gte(start).Lt(end),
		Term("ResourceType", "Payload"),
		Not(Terms("VOName", "Unknown", "other")),
	)

	assert.JSONEq(t, `{"bool":{"must":[
		{"range":{"EndTime":{"gte":"2024-01-01T00:00:00Z","lt":"2024-02-01T00:00:00Z"}}},
		{"term":{"ResourceType":"Payload"}},
		{"bool":{"must_not":[{"terms":{"VOName":["Unknown","other"]}}]}}
	]}}`, toJSON(t, f.Source()))
}

func TestAnd_FlattensNestedAndDropsNil(t *testing.T) {
	f := And(And(Term("a", 1), Term("b", 2)), nil, Term("c", 3))

	and, ok := f.(andFilter)
	require.True(t, ok)
	assert.Len(t, and.filters, 3)

	single := And(nil, Term("a", 1))
	assert.Equal(t, Term("a", 1), single)
}

func TestOr_UsesShouldWithMinimumMatch(t *testing.T) {
	f := Or(Term("ProbeName", "x"), Or(Term("ProbeName", "y"), Wildcard("OIM_Organization", "*")))

	assert.JSONEq(t, `{"bool":{"minimum_should_match":1,"should":[
		{"term":{"ProbeName":"x"}},
		{"term":{"ProbeName":"y"}},
		{"wildcard":{"OIM_Organization":"*"}}
	]}}`, toJSON(t, f.Source()))
}

func TestSearch_BodyIncludesFilterAggsAndSort(t *testing.T) {
	s := NewSearch("gracc.osg.summary").
		Filter(Term("ResourceType", "Batch")).
		Query(Match("dirname1.keyword", "/ospool")).
		Agg("CoreHours", SumAgg("CoreHours")).
		Agg("FQDNs", TermsAgg("OIM_FQDN", 1000).Sub("Resources", TermsAgg("OIM_Resource", 1000))).
		Sort("StartTime")

	assert.JSONEq(t, `{
		"size": 0,
		"query": {"bool": {
			"filter": [{"term": {"ResourceType": "Batch"}}],
			"must": [{"match": {"dirname1.keyword": "/ospool"}}]
		}},
		"aggs": {
			"CoreHours": {"sum": {"field": "CoreHours"}},
			"FQDNs": {
				"terms": {"field": "OIM_FQDN", "size": 1000},
				"aggs": {"Resources": {"terms": {"field": "OIM_Resource", "size": 1000}}}
			}
		},
		"sort": [{"StartTime": {"order": "asc"}}]
	}`, toJSON(t, s.Body()))
}

func TestMetricAgg_Missing(t *testing.T) {
	assert.JSONEq(t, `{"sum":{"field":"CoreHours","missing":0}}`,
		toJSON(t, SumAgg("CoreHours").Missing(0).Source()))
	assert.JSONEq(t, `{"date_histogram":{"field":"EndTime","calendar_interval":"1d"}}`,
		toJSON(t, DateHistogramAgg("EndTime", "1d").Source()))
}

func TestAggregations_MissingValuesReadAsZero(t *testing.T) {
	var aggs Aggregations
	require.NoError(t, json.Unmarshal([]byte(`{
		"CoreHours": {"value": null},
		"FQDN_count": {"value": 0},
		"FQDNs": {"buckets": []}
	}`), &aggs))

	assert.Equal(t, 0.0, aggs.Value("CoreHours"))
	assert.Equal(t, int64(0), aggs.Count("FQDN_count"))
	assert.Equal(t, 0.0, aggs.Value("Absent"))
	assert.Empty(t, aggs.Buckets("FQDNs"))
	assert.NotNil(t, aggs.Buckets("Absent"))
	assert.Empty(t, aggs.Buckets("Absent"))
}

func TestAggregations_NestedBuckets(t *testing.T) {
	var aggs Aggregations
	require.NoError(t, json.Unmarshal([]byte(`{
		"timestamp": {"buckets": [
			{"key": 1704067200000, "key_as_string": "2024-01-01T00:00:00.000Z", "doc_count": 3,
			 "logical_dirname": {"buckets": [{"key": "/ospool/ap20/data/alice", "doc_count": 3}]}}
		]}
	}`), &aggs))

	months := aggs.Buckets("timestamp")
	require.Len(t, months, 1)
	assert.Equal(t, int64(3), months[0].DocCount)

	ts, err := months[0].KeyTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ts)

	users := months[0].Buckets("logical_dirname")
	require.Len(t, users, 1)
	assert.Equal(t, "/ospool/ap20/data/alice", users[0].KeyString())
}

func TestBucket_KeyTimeFallsBackToKeyAsString(t *testing.T) {
	b := Bucket{Key: "2023-11", KeyAsString: "2023-11-01T00:00:00.000Z"}
	ts, err := b.KeyTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), ts)

	_, err = Bucket{KeyAsString: "November"}.KeyTime()
	assert.Error(t, err)
}
