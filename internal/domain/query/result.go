package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Aggregations is the "aggregations" object of a search response, keyed by
// aggregation name. Readers never fail on absent entries: missing metrics
// read as zero and missing bucket lists read as empty.
type Aggregations map[string]json.RawMessage

// Value returns the "value" of a metric aggregation, or 0 when the
// aggregation is absent or null (no matching records).
func (a Aggregations) Value(name string) float64 {
	raw, ok := a[name]
	if !ok {
		return 0
	}
	var metric struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &metric); err != nil || metric.Value == nil {
		return 0
	}
	return *metric.Value
}

// Count returns a cardinality-style metric as an integer.
func (a Aggregations) Count(name string) int64 {
	return int64(math.Round(a.Value(name)))
}

// Buckets returns the buckets of a bucket aggregation in response order.
func (a Aggregations) Buckets(name string) []Bucket {
	raw, ok := a[name]
	if !ok {
		return []Bucket{}
	}
	var agg struct {
		Buckets []json.RawMessage `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return []Bucket{}
	}
	buckets := make([]Bucket, 0, len(agg.Buckets))
	for _, rb := range agg.Buckets {
		b, err := parseBucket(rb)
		if err != nil {
			continue
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// Bucket is one bucket of a terms or date_histogram aggregation.
type Bucket struct {
	Key         any
	KeyAsString string
	DocCount    int64
	Aggregations
}

// KeyString renders the bucket key as text.
func (b Bucket) KeyString() string {
	switch k := b.Key.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case nil:
		return b.KeyAsString
	default:
		return fmt.Sprint(k)
	}
}

// KeyTime interprets the bucket key as a timestamp. Date histogram keys are
// epoch milliseconds; when the key is not numeric, key_as_string is parsed.
func (b Bucket) KeyTime() (time.Time, error) {
	if ms, ok := b.Key.(float64); ok {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	return ParseTimestamp(b.KeyAsString)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

// ParseTimestamp parses the date formats the accounting backend emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseBucket(raw json.RawMessage) (Bucket, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Bucket{}, err
	}
	b := Bucket{Aggregations: Aggregations{}}
	for name, v := range fields {
		switch name {
		case "key":
			if err := json.Unmarshal(v, &b.Key); err != nil {
				return Bucket{}, err
			}
		case "key_as_string":
			_ = json.Unmarshal(v, &b.KeyAsString)
		case "doc_count":
			_ = json.Unmarshal(v, &b.DocCount)
		default:
			b.Aggregations[name] = v
		}
	}
	return b, nil
}
