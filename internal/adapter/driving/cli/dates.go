package cli

import (
	"fmt"
	"time"

	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// DateLayout is the only date format accepted on the command line.
const DateLayout = "2006-01-02"

// parseDate reads a calendar date as UTC midnight, the zone the backends
// store their timestamps in.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", types.ErrInvalidDate, s)
	}
	return t, nil
}

// parsePeriod validates a START END pair. Equal dates are allowed.
func parsePeriod(start, end string) (types.DateRange, error) {
	s, err := parseDate(start)
	if err != nil {
		return types.DateRange{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return types.DateRange{}, err
	}
	if s.After(e) {
		return types.DateRange{}, fmt.Errorf("%w: %s > %s", types.ErrStartAfterEnd, start, end)
	}
	return types.DateRange{Start: s, End: e}, nil
}
