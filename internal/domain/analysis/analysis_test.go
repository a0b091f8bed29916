package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindows_PreserveInputOrder(t *testing.T) {
	end := date(2024, 6, 15)

	windows := Windows(end, []int{365, 1, 30})

	require.Len(t, windows, 3)
	assert.Equal(t, []int{365, 1, 30}, []int{windows[0].Days, windows[1].Days, windows[2].Days})
	assert.Equal(t, date(2023, 6, 16), windows[0].Start)
	assert.Equal(t, date(2024, 6, 14), windows[1].Start)
	assert.Equal(t, date(2024, 5, 16), windows[2].Start)
	for _, w := range windows {
		assert.Equal(t, end, w.End)
	}
}

func TestMonthBoundaries(t *testing.T) {
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), EndOfMonth(date(2024, 2, 3)))
	assert.Equal(t, date(2024, 2, 1), StartOfMonth(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, date(2024, 2, 29), MonthsBefore(date(2024, 3, 31), 1))
	assert.Equal(t, date(2023, 9, 30), MonthsBefore(date(2024, 3, 30), 6))
	assert.Equal(t, date(2024, 6, 15), Midnight(time.Date(2024, 6, 15, 13, 4, 5, 0, time.UTC)))
}

func ids(v ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, s := range v {
		set[s] = struct{}{}
	}
	return set
}

func TestCompareMonths_NewIsSubsetOfActive(t *testing.T) {
	months := []entity.MonthIdentities{
		{Month: date(2024, 3, 1), Identities: ids("alice", "bob", "carol")},
		{Month: date(2024, 1, 1), Identities: ids("alice")},
		{Month: date(2024, 2, 1), Identities: ids("bob", "dave")},
	}

	got := CompareMonths(months)

	assert.Equal(t, date(2024, 3, 1), got.Month)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Active)
	assert.Equal(t, []string{"carol"}, got.New)
	for _, n := range got.New {
		assert.Contains(t, got.Active, n)
	}
}

func TestCompareMonths_IdenticalMonthsHaveNoNewUsers(t *testing.T) {
	months := []entity.MonthIdentities{
		{Month: date(2024, 1, 1), Identities: ids("a", "b")},
		{Month: date(2024, 2, 1), Identities: ids("a", "b")},
	}

	got := CompareMonths(months)

	assert.Len(t, got.Active, 2)
	assert.Empty(t, got.New)
}

func TestCompareMonths_UsesTemporalNotLexicalOrder(t *testing.T) {
	// "2023-12" sorts after "2024-01" only lexically on a mis-parsed key; the
	// months here are real times so December must be treated as older.
	months := []entity.MonthIdentities{
		{Month: date(2024, 1, 1), Identities: ids("x", "y")},
		{Month: date(2023, 12, 1), Identities: ids("x")},
	}

	got := CompareMonths(months)

	assert.Equal(t, []string{"y"}, got.New)
}

func TestCompareMonths_Empty(t *testing.T) {
	got := CompareMonths(nil)
	assert.Empty(t, got.Active)
	assert.Empty(t, got.New)
}

func TestMonthlyCounts_Chronological(t *testing.T) {
	counts := MonthlyCounts([]entity.MonthIdentities{
		{Month: date(2024, 2, 1), Identities: ids("a", "b")},
		{Month: date(2024, 1, 1), Identities: ids("a")},
	})
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, 2, counts[1].Count)
}

func series(values ...float64) ([]time.Time, entity.UsageSeries) {
	days := make([]time.Time, len(values))
	for i := range values {
		days[i] = date(2024, 1, 1).AddDate(0, 0, i)
	}
	return days, entity.UsageSeries{Identity: "user", Values: values}
}

func zeros(n int) []float64 {
	return make([]float64, n)
}

func TestDetectIdleBursts_FifteenZerosThenBurst(t *testing.T) {
	days, s := series(append(zeros(15), 1000)...)

	episodes := DetectIdleBursts(days, s, DefaultIdleBurst)

	require.Len(t, episodes, 1)
	assert.Equal(t, 15, episodes[0].IdleDays)
	assert.Equal(t, "user", episodes[0].Identity)
	assert.Equal(t, days[15], episodes[0].WindowStart)
	assert.Equal(t, days[15], episodes[0].WindowEnd)
}

func TestDetectIdleBursts_NoCarryOverAcrossZeroRuns(t *testing.T) {
	values := append(zeros(20), 500)
	values = append(values, zeros(20)...)
	values = append(values, 600)
	days, s := series(values...)

	assert.Empty(t, DetectIdleBursts(days, s, DefaultIdleBurst))
}

func TestDetectIdleBursts_ThirteenZerosIsNotIdle(t *testing.T) {
	days, s := series(append(zeros(13), 1000)...)

	assert.Empty(t, DetectIdleBursts(days, s, DefaultIdleBurst))
}

func TestDetectIdleBursts_MultiDayBurstAndSecondEpisode(t *testing.T) {
	values := append(zeros(16), 400, 700)
	values = append(values, zeros(30)...)
	values = append(values, 2000)
	days, s := series(values...)

	episodes := DetectIdleBursts(days, s, DefaultIdleBurst)

	require.Len(t, episodes, 2)
	assert.Equal(t, 16, episodes[0].IdleDays)
	assert.Equal(t, days[16], episodes[0].WindowStart)
	assert.Equal(t, days[17], episodes[0].WindowEnd)
	assert.Equal(t, 30, episodes[1].IdleDays)
	assert.Equal(t, days[48], episodes[1].WindowStart)
}

func TestDetectIdleBursts_ActivityResetsIdleRun(t *testing.T) {
	values := append(zeros(10), 5)
	values = append(values, zeros(5)...)
	values = append(values, 2000)
	days, s := series(values...)

	assert.Empty(t, DetectIdleBursts(days, s, DefaultIdleBurst))
}

func strptr(s string) *string { return &s }

func TestQueueSampler_StopsAfterTargetAndComputesStats(t *testing.T) {
	q := NewQueueSampler(1000)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var done bool
	for i := 1; i <= 10; i++ {
		queued := base.Format(time.RFC3339)
		// delay of i minutes on top of a one hour wall time
		end := base.Add(time.Hour + time.Duration(i)*time.Minute).Format(time.RFC3339)
		var err error
		done, err = q.Add(entity.JobRecord{EndTime: end, QueueTime: strptr(queued), WallDuration: 3600, CoreHours: 101})
		require.NoError(t, err)
		if done {
			break
		}
	}

	require.True(t, done)
	got := q.Result()
	assert.Equal(t, 10, got.Jobs)
	assert.True(t, got.ReachedTarget)
	assert.InDelta(t, 1010, got.CoreHours, 1e-9)
	assert.InDelta(t, 600, got.MaxDelay, 1e-9)
	assert.InDelta(t, 330, got.MeanDelay, 1e-9)
	assert.InDelta(t, 3300, got.AggregateDelay, 1e-9)
	assert.InDelta(t, 540, got.P90Delay, 1e-9)
	assert.InDelta(t, 181.659, got.StdDevDelay, 1e-3)
}

func TestQueueSampler_MissingQueueTimeCountsJobButNotDelay(t *testing.T) {
	q := NewQueueSampler(1000)

	done, err := q.Add(entity.JobRecord{EndTime: "2024-01-01T01:00:00Z", WallDuration: 60, CoreHours: 2})
	assert.False(t, done)
	assert.ErrorIs(t, err, ErrMissingQueueTime)

	_, err = q.Add(entity.JobRecord{
		EndTime:      "2024-01-01T01:00:00Z",
		QueueTime:    strptr("2024-01-01T00:00:00Z"),
		WallDuration: 1800,
		CoreHours:    3,
	})
	require.NoError(t, err)

	got := q.Result()
	assert.Equal(t, 2, got.Jobs)
	assert.Equal(t, 1, got.SkippedJobs)
	assert.InDelta(t, 5, got.CoreHours, 1e-9)
	assert.InDelta(t, 1800, got.MaxDelay, 1e-9)
	assert.InDelta(t, 1800, got.MeanDelay, 1e-9)
	assert.Zero(t, got.StdDevDelay)
	assert.InDelta(t, 1800, got.P90Delay, 1e-9)
	assert.False(t, got.ReachedTarget)
}

func TestReportingPeriod_IsExclusive(t *testing.T) {
	p := ReportingPeriod(date(2024, 1, 1), date(2024, 1, 31))

	assert.False(t, p.Contains(date(2024, 1, 1)))
	assert.True(t, p.Contains(time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2024, 1, 31, 23, 59, 58, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
}

func TestWallClock_DropsOffset(t *testing.T) {
	cdt := time.FixedZone("CDT", -5*3600)
	got := WallClock(time.Date(2024, 1, 31, 22, 0, 0, 0, cdt))
	assert.Equal(t, time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC), got)
}

func TestFirstTransitionWithin_OldestFirstInsideWindow(t *testing.T) {
	p := ReportingPeriod(date(2024, 2, 1), date(2024, 2, 29))
	history := []entity.ChangeHistory{
		{Created: date(2024, 2, 20), Items: []entity.ChangeItem{{Field: "status", ToString: "Done"}}},
		{Created: date(2024, 1, 10), Items: []entity.ChangeItem{{Field: "status", ToString: "Done"}}},
		{Created: date(2024, 2, 5), Items: []entity.ChangeItem{
			{Field: "assignee", ToString: "Done"},
			{Field: "status", ToString: "Done"},
		}},
	}

	at, ok := FirstTransitionWithin(history, "status", "Done", p)

	require.True(t, ok)
	assert.Equal(t, date(2024, 2, 5), at)

	_, ok = FirstTransitionWithin(history[1:2], "status", "Done", p)
	assert.False(t, ok)
}

func TestIsCodeReviewed_PrefixOnlyCaseInsensitive(t *testing.T) {
	assert.True(t, IsCodeReviewed([]entity.Comment{{Body: "Code Review: looks good"}}, CodeReviewPrefix))
	assert.True(t, IsCodeReviewed([]entity.Comment{{Body: "nothing"}, {Body: "  CODE REVIEW done"}}, CodeReviewPrefix))
	assert.False(t, IsCodeReviewed([]entity.Comment{{Body: "This long preamble precedes the code review"}}, CodeReviewPrefix))
	assert.False(t, IsCodeReviewed(nil, CodeReviewPrefix))
}

func TestWorklogReducer_UnknownAuthorIsDroppedWithWarning(t *testing.T) {
	p := ReportingPeriod(date(2024, 1, 1), date(2024, 1, 31))
	r := NewWorklogReducer([]string{"Ada", "Grace"}, p)
	issue := entity.Issue{Key: "HTCONDOR-1", Summary: "thing"}

	counted, err := r.Add(issue, false, entity.WorklogEntry{Author: "Ada", Started: date(2024, 1, 2), TimeSpentSeconds: 5400})
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = r.Add(issue, true, entity.WorklogEntry{Author: "Mallory", Started: date(2024, 1, 3), TimeSpentSeconds: 3600})
	assert.ErrorIs(t, err, ErrUnknownAuthor)
	assert.False(t, counted)

	counted, err = r.Add(issue, false, entity.WorklogEntry{Author: "Grace", Started: date(2024, 2, 3), TimeSpentSeconds: 3600})
	require.NoError(t, err)
	assert.False(t, counted)

	report := r.Report(100)
	assert.Equal(t, []entity.DeveloperHours{{Developer: "Ada", Hours: 1.5}, {Developer: "Grace", Hours: 0}}, report.Developers)
	assert.InDelta(t, 1.5, report.TotalHours, 1e-9)
	assert.InDelta(t, 1.5, report.EffortPercent(), 1e-9)
	assert.Equal(t, []string{"Mallory"}, report.UnknownAuthors)
	assert.Len(t, report.Lines, 2)
}

func TestRoundHours(t *testing.T) {
	assert.Equal(t, 0.33, RoundHours(1200))
	assert.Equal(t, 2.0, RoundHours(7200))
}

func TestHasActiveSubtasksAndStale(t *testing.T) {
	assert.False(t, HasActiveSubtasks([]entity.Subtask{{Status: "Done"}, {Status: "Backlog"}}, InactiveStatuses))
	assert.True(t, HasActiveSubtasks([]entity.Subtask{{Status: "Done"}, {Status: "In Progress"}}, InactiveStatuses))

	asOf := date(2024, 3, 20)
	assert.True(t, IsStale(date(2024, 3, 9), asOf, 10))
	assert.False(t, IsStale(date(2024, 3, 10), asOf, 10))
}

func TestDueDateHistory(t *testing.T) {
	issue := entity.Issue{
		Key:      "SOFTWARE-9",
		Assignee: "Ada",
		DueDate:  "2024-05-01",
		Changelog: []entity.ChangeHistory{
			{Created: date(2024, 3, 1), Items: []entity.ChangeItem{{Field: "duedate", From: "2024-04-01", To: "2024-05-01"}}},
			{Created: date(2024, 2, 1), Items: []entity.ChangeItem{{Field: "duedate", From: "", To: "2024-04-01"}}},
		},
	}

	got := DueDateHistory(issue)

	assert.Equal(t, entity.DueDateChange{Key: "SOFTWARE-9", Assignee: "Ada", Original: "", Current: "2024-05-01", Changes: 2}, got)

	unchanged := DueDateHistory(entity.Issue{Key: "X-1", DueDate: "2024-01-01"})
	assert.Equal(t, "2024-01-01", unchanged.Original)
	assert.Equal(t, 0, unchanged.Changes)
}
