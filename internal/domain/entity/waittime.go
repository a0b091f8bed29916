package entity

import "time"

// UsageSeries is one identity's per-day core-hours, aligned with the days
// of the enclosing DailyUsage.
type UsageSeries struct {
	Identity string
	Values   []float64
}

// DailyUsage is a dense identity × day matrix of core-hours. Days without
// records are zero.
type DailyUsage struct {
	Days   []time.Time
	Series []UsageSeries
	// Projects maps a user identity to the projects it ran under.
	Projects map[string]map[string]struct{}
}

// IdleEpisode is a burst of usage that followed a long idle run.
type IdleEpisode struct {
	Identity    string    `json:"identity"`
	IdleDays    int       `json:"idle_days"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// JobRecord is the subset of a raw accounting record needed for queue delay.
type JobRecord struct {
	StartTime    string  `json:"StartTime"`
	EndTime      string  `json:"EndTime"`
	QueueTime    *string `json:"QueueTime,omitempty"`
	WallDuration float64 `json:"WallDuration"`
	CoreHours    float64 `json:"CoreHours"`
	ProbeName    string  `json:"ProbeName"`
}

// QueueSample summarizes the jobs replayed for one episode. Delays are in seconds.
type QueueSample struct {
	Jobs           int     `json:"jobs"`
	SkippedJobs    int     `json:"skipped_jobs"`
	WallTime       float64 `json:"wall_time"`
	CoreHours      float64 `json:"core_hours"`
	AggregateDelay float64 `json:"aggregate_delay"`
	MaxDelay       float64 `json:"max_delay"`
	MeanDelay      float64 `json:"mean_delay"`
	StdDevDelay    float64 `json:"stddev_delay"`
	P90Delay       float64 `json:"p90_delay"`
	ReachedTarget  bool    `json:"reached_target"`
}

// WaitTimeRow is one output row of the wait time report.
type WaitTimeRow struct {
	Episode  IdleEpisode `json:"episode"`
	Projects []string    `json:"projects,omitempty"`
	Sample   QueueSample `json:"sample"`
}
