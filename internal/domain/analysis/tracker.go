package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// ErrUnknownAuthor is returned for worklog authors missing from the roster.
var ErrUnknownAuthor = errors.New("author is not in the developer roster")

// Period is an open interval (Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// ReportingPeriod spans from 00:00:01 on the start date to 23:59:59 on the
// end date, both exclusive.
func ReportingPeriod(startDate, endDate time.Time) Period {
	return Period{
		Start: Midnight(startDate).Add(time.Second),
		End:   EndOfDay(endDate),
	}
}

// Contains reports whether t lies strictly inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.After(p.Start) && t.Before(p.End)
}

// WallClock drops t's zone offset, keeping the local wall-clock reading.
func WallClock(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// Chronological returns the changelog ordered oldest first.
func Chronological(history []entity.ChangeHistory) []entity.ChangeHistory {
	sorted := make([]entity.ChangeHistory, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Created.Before(sorted[j].Created)
	})
	return sorted
}

// FirstTransitionWithin walks the changelog oldest first and returns the
// time of the first change of field to status that falls inside p.
func FirstTransitionWithin(history []entity.ChangeHistory, field, status string, p Period) (time.Time, bool) {
	for _, h := range Chronological(history) {
		for _, item := range h.Items {
			if item.Field != field || item.ToString != status {
				continue
			}
			if p.Contains(h.Created) {
				return h.Created, true
			}
		}
	}
	return time.Time{}, false
}

// CodeReviewPrefix is how much of a comment is searched for the review marker.
const CodeReviewPrefix = 20

// IsCodeReviewed reports whether any comment mentions "code review"
// (case-insensitive) within its first prefix characters.
func IsCodeReviewed(comments []entity.Comment, prefix int) bool {
	for _, c := range comments {
		body := []rune(strings.ToLower(c.Body))
		if len(body) > prefix {
			body = body[:prefix]
		}
		if strings.Contains(string(body), "code review") {
			return true
		}
	}
	return false
}

// RoundHours converts seconds to hours rounded to two decimals.
func RoundHours(seconds int) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}

// WorklogReducer accumulates logged hours per roster member within a period.
type WorklogReducer struct {
	period  Period
	roster  []string
	hours   map[string]float64
	unknown map[string]struct{}
	lines   []entity.WorklogLine
}

// NewWorklogReducer creates a reducer for the given roster. Roster order is
// preserved in the output.
func NewWorklogReducer(roster []string, p Period) *WorklogReducer {
	hours := make(map[string]float64, len(roster))
	for _, dev := range roster {
		hours[dev] = 0
	}
	return &WorklogReducer{
		period:  p,
		roster:  roster,
		hours:   hours,
		unknown: map[string]struct{}{},
	}
}

// Add accounts a worklog entry of issue. Entries outside the period are
// ignored (counted=false). Entries by authors missing from the roster are
// dropped and reported with ErrUnknownAuthor.
func (r *WorklogReducer) Add(issue entity.Issue, subtask bool, w entity.WorklogEntry) (counted bool, err error) {
	started := WallClock(w.Started)
	if !r.period.Contains(started) {
		return false, nil
	}

	hours := RoundHours(w.TimeSpentSeconds)
	r.lines = append(r.lines, entity.WorklogLine{
		IssueKey: issue.Key,
		Summary:  issue.Summary,
		Subtask:  subtask,
		Author:   w.Author,
		Hours:    hours,
		Started:  started,
	})

	if _, ok := r.hours[w.Author]; !ok {
		r.unknown[w.Author] = struct{}{}
		return false, fmt.Errorf("%w: could not add work logged for %s", ErrUnknownAuthor, w.Author)
	}
	r.hours[w.Author] += hours
	return true, nil
}

// Report builds the effort report.
func (r *WorklogReducer) Report(effortHours int) entity.EffortReport {
	report := entity.EffortReport{
		Start:          r.period.Start,
		End:            r.period.End,
		EffortHours:    effortHours,
		UnknownAuthors: entity.SortedKeys(r.unknown),
		Lines:          r.lines,
	}
	for _, dev := range r.roster {
		h := math.Round(r.hours[dev]*100) / 100
		report.Developers = append(report.Developers, entity.DeveloperHours{Developer: dev, Hours: h})
		report.TotalHours += r.hours[dev]
	}
	report.TotalHours = math.Round(report.TotalHours*100) / 100
	return report
}

// InactiveStatuses are the statuses that do not keep an issue open.
var InactiveStatuses = []string{"Backlog", "Done", "Abandoned", "Blocked"}

// HasActiveSubtasks reports whether any subtask is in a status other than inactive.
func HasActiveSubtasks(subtasks []entity.Subtask, inactive []string) bool {
	for _, st := range subtasks {
		active := true
		for _, s := range inactive {
			if st.Status == s {
				active = false
				break
			}
		}
		if active {
			return true
		}
	}
	return false
}

// IsStale reports whether updated is more than days before asOf.
func IsStale(updated, asOf time.Time, days int) bool {
	return WallClock(updated).Before(asOf.AddDate(0, 0, -days))
}

// DueDateHistory walks the changelog oldest first counting due date changes.
// With no changes both the original and current due date are the issue's
// present due date.
func DueDateHistory(issue entity.Issue) entity.DueDateChange {
	change := entity.DueDateChange{
		Key:      issue.Key,
		Assignee: issue.Assignee,
		Original: issue.DueDate,
		Current:  issue.DueDate,
	}
	for _, h := range Chronological(issue.Changelog) {
		for _, item := range h.Items {
			if item.Field != "duedate" {
				continue
			}
			if change.Changes == 0 {
				change.Original = item.From
			}
			change.Changes++
			change.Current = item.To
		}
	}
	return change
}
