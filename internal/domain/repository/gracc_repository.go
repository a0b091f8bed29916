package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/osg-htc/osg-reports/internal/domain/query"
)

// ErrStopScan can be returned from a ScanFunc to end a scan early without error.
var ErrStopScan = errors.New("stop scan")

// ScanFunc receives the _source of each hit in sort order.
type ScanFunc func(source json.RawMessage) error

// GraccRepository defines the interface for the accounting search backend.
type GraccRepository interface {
	// Aggregate runs a size-0 search and returns its aggregations.
	Aggregate(ctx context.Context, search *query.Search) (query.Aggregations, error)
	// Scan pages through every hit of search, in the search's sort order.
	Scan(ctx context.Context, search *query.Search, fn ScanFunc) error
}
