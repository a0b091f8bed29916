package entity

import "time"

// Issue is the part of a tracker issue the reports read.
type Issue struct {
	Key         string
	Summary     string
	Assignee    string
	Status      string
	DueDate     string
	Updated     time.Time
	Development string
	Changelog   []ChangeHistory
	Subtasks    []Subtask
}

// Subtask is a child issue reference.
type Subtask struct {
	Key     string
	Summary string
	Status  string
}

// ChangeHistory is one changelog entry, possibly changing several fields.
type ChangeHistory struct {
	Created time.Time
	Items   []ChangeItem
}

// ChangeItem is a single field change.
type ChangeItem struct {
	Field      string
	From       string
	To         string
	FromString string
	ToString   string
}

// WorklogEntry is one block of logged time.
type WorklogEntry struct {
	Author           string
	Started          time.Time
	TimeSpentSeconds int
}

// Comment is an issue comment.
type Comment struct {
	Body string
}

// DoneIssue is an issue that reached the terminal status within the window.
type DoneIssue struct {
	Key          string    `json:"key"`
	Summary      string    `json:"summary"`
	DoneAt       time.Time `json:"done_at"`
	CodeReviewed bool      `json:"code_reviewed"`
}

// CodeReviewReport counts completed issues and how many were code reviewed.
type CodeReviewReport struct {
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Project  string      `json:"project"`
	Done     int         `json:"done"`
	Reviewed int         `json:"reviewed"`
	Issues   []DoneIssue `json:"issues"`
}

// ReviewRate is the percentage of done issues that were reviewed.
func (r CodeReviewReport) ReviewRate() float64 {
	if r.Done == 0 {
		return 0
	}
	return float64(r.Reviewed) * 100 / float64(r.Done)
}

// WorklogLine is one worklog entry attributed to an issue, kept for detailed output.
type WorklogLine struct {
	IssueKey string    `json:"issue_key"`
	Summary  string    `json:"summary"`
	Subtask  bool      `json:"subtask"`
	Author   string    `json:"author"`
	Hours    float64   `json:"hours"`
	Started  time.Time `json:"started"`
}

// DeveloperHours is a roster member's logged hours.
type DeveloperHours struct {
	Developer string  `json:"developer"`
	Hours     float64 `json:"hours"`
}

// EffortReport is the per-developer worklog summary.
type EffortReport struct {
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	Project        string           `json:"project"`
	Developers     []DeveloperHours `json:"developers"`
	TotalHours     float64          `json:"total_hours"`
	EffortHours    int              `json:"effort_hours"`
	UnknownAuthors []string         `json:"unknown_authors,omitempty"`
	Lines          []WorklogLine    `json:"lines,omitempty"`
}

// EffortPercent is the logged share of the available effort hours.
func (r EffortReport) EffortPercent() float64 {
	if r.EffortHours == 0 {
		return 0
	}
	return r.TotalHours * 100 / float64(r.EffortHours)
}

// StaleReport counts open issues and those not updated recently.
type StaleReport struct {
	AsOf        time.Time `json:"as_of"`
	OpenIssues  int       `json:"open_issues"`
	StaleIssues []string  `json:"stale_issues"`
	Skipped     []string  `json:"skipped_with_active_subtasks,omitempty"`
}

// StalePercent is the share of open issues that are stale.
func (r StaleReport) StalePercent() float64 {
	if r.OpenIssues == 0 {
		return 0
	}
	return float64(len(r.StaleIssues)) * 100 / float64(r.OpenIssues)
}

// DueDateChange summarizes the due date history of one issue.
type DueDateChange struct {
	Key      string `json:"key"`
	Assignee string `json:"assignee"`
	Original string `json:"original_due_date"`
	Current  string `json:"current_due_date"`
	Changes  int    `json:"changes"`
}
