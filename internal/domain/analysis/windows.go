// Package analysis holds the report algorithms that do not touch a backend:
// window arithmetic, monthly set comparison, idle/burst detection, queue
// delay sampling and tracker reductions.
package analysis

import (
	"time"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// DateLayout is the CLI date format.
const DateLayout = "2006-01-02"

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Windows returns one [end-days, end) window per entry of days, in input order.
func Windows(end time.Time, days []int) []entity.Window {
	windows := make([]entity.Window, 0, len(days))
	for _, d := range days {
		windows = append(windows, entity.Window{
			Days:  d,
			Start: end.AddDate(0, 0, -d),
			End:   end,
		})
	}
	return windows
}

// EndOfDay returns 23:59:59 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// EndOfMonth returns 23:59:59 on the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, daysIn(y, m), 23, 59, 59, 0, t.Location())
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// MonthsBefore moves t back n calendar months, clamping the day to the
// length of the target month (Mar 31 minus one month is Feb 28/29).
func MonthsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := target.Date()
	if last := daysIn(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
