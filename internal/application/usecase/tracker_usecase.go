package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// TrackerProject is the project the milestone reports cover.
const TrackerProject = "HTCONDOR"

// StaleAfterDays is how long an open issue may go without updates.
const StaleAfterDays = 10

// DefaultDueDateProjects are reported when no projects are given.
var DefaultDueDateProjects = []string{"HTCONDOR", "SOFTWARE"}

const (
	codeReviewJQL = "project = HTCONDOR AND type in (Improvement, Bug) AND status = Done"
	effortJQL     = "project = HTCONDOR AND type in (Improvement, Documentation)"
	staleJQL      = "project = HTCONDOR AND type in (Improvement, Bug, Documentation, Subtask, Sub-task) " +
		"AND status not in (Backlog, Done, Abandoned, Blocked) AND assignee in (%s) AND createdDate <= %s"
	dueDateJQL = "project = %s AND status != Backlog"

	// emptyDevelopment is the Development field of an issue with no linked commits.
	emptyDevelopment = "{}"
)

// TrackerUseCase handles the issue tracker milestone reports.
type TrackerUseCase struct {
	trackerRepo repository.TrackerRepository
	publisher   *Publisher
	config      *types.Config
	console     types.ConsoleInterface
}

// NewTrackerUseCase creates a new tracker use case.
func NewTrackerUseCase(
	trackerRepo repository.TrackerRepository,
	publisher *Publisher,
	config *types.Config,
	console types.ConsoleInterface,
) *TrackerUseCase {
	return &TrackerUseCase{
		trackerRepo: trackerRepo,
		publisher:   publisher,
		config:      config,
		console:     console,
	}
}

// CodeReviews counts the issues first marked Done inside the period and how
// many of them carry a code review comment. Issues without linked
// development are not counted.
func (uc *TrackerUseCase) CodeReviews(ctx context.Context, period types.DateRange) (entity.CodeReviewReport, error) {
	p := analysis.ReportingPeriod(period.Start, period.End)
	report := entity.CodeReviewReport{
		Start:   period.Start,
		End:     period.End,
		Project: TrackerProject,
		Issues:  []entity.DoneIssue{},
	}

	devField, ok, err := uc.trackerRepo.FieldID(ctx, "Development")
	if err != nil {
		return report, fmt.Errorf("resolving Development field: %w", err)
	}
	if !ok {
		zerolog.Ctx(ctx).Warn().Msg("Development field not found; counting every Done issue")
	}

	status := uc.console.Status("Searching Done issues...")
	issues, err := uc.trackerRepo.SearchIssues(ctx, codeReviewJQL, repository.IssueQuery{
		WithChangelog:    true,
		DevelopmentField: devField,
	})
	status.Stop()
	if err != nil {
		return report, fmt.Errorf("searching issues: %w", err)
	}

	for _, issue := range issues {
		if ok && issue.Development == emptyDevelopment {
			continue
		}
		doneAt, found := analysis.FirstTransitionWithin(issue.Changelog, "status", "Done", p)
		if !found {
			continue
		}

		comments, err := uc.trackerRepo.GetComments(ctx, issue.Key)
		if err != nil {
			return report, fmt.Errorf("fetching comments of %s: %w", issue.Key, err)
		}
		reviewed := analysis.IsCodeReviewed(comments, analysis.CodeReviewPrefix)

		report.Done++
		if reviewed {
			report.Reviewed++
		}
		report.Issues = append(report.Issues, entity.DoneIssue{
			Key:          issue.Key,
			Summary:      issue.Summary,
			DoneAt:       doneAt,
			CodeReviewed: reviewed,
		})
	}

	return report, nil
}

// RunCodeReviews writes the code review report.
func (uc *TrackerUseCase) RunCodeReviews(ctx context.Context, args *types.CLIArgs, targs types.TrackerArgs) error {
	report, err := uc.CodeReviews(ctx, targs.Period)
	if err != nil {
		return err
	}

	table := entity.Table{Title: betweenTitle(targs.Period)}
	if targs.Detailed {
		table.Headers = []string{"Issue", "Summary", "Marked Done", "Code Reviewed"}
		for _, i := range report.Issues {
			table.AddRow(i.Key, i.Summary, i.DoneAt.Format(time.DateTime), yesNo(i.CodeReviewed))
		}
	}
	table.Notes = []string{
		fmt.Sprintf("%d %s issues were marked Done", report.Done, report.Project),
		fmt.Sprintf("%d of these completed issues were code reviewed", report.Reviewed),
	}
	if report.Done > 0 {
		table.Notes = append(table.Notes, fmt.Sprintf("Code review rate: %s%%", round2(report.ReviewRate())))
	} else {
		table.Notes = append(table.Notes, "No issues marked Done between the dates specified.")
	}

	return uc.publisher.Publish(ctx, args, Report{Name: "code_reviews", Format: "text", Table: table, Doc: report})
}

// Effort sums the worklogs of matching issues and their subtasks per roster
// member. Entries by authors outside the roster are dropped with a warning.
func (uc *TrackerUseCase) Effort(ctx context.Context, period types.DateRange, effortHours int) (entity.EffortReport, error) {
	if len(uc.config.Developers) == 0 {
		return entity.EffortReport{}, types.ErrNoDevelopers
	}
	if effortHours <= 0 {
		return entity.EffortReport{}, types.ErrInvalidEffortHours
	}

	status := uc.console.Status("Searching issues...")
	issues, err := uc.trackerRepo.SearchIssues(ctx, effortJQL, repository.IssueQuery{})
	status.Stop()
	if err != nil {
		return entity.EffortReport{}, fmt.Errorf("searching issues: %w", err)
	}

	log := zerolog.Ctx(ctx)
	reducer := analysis.NewWorklogReducer(uc.config.Developers, analysis.ReportingPeriod(period.Start, period.End))

	add := func(issue entity.Issue, subtask bool) error {
		worklogs, err := uc.trackerRepo.GetWorklogs(ctx, issue.Key)
		if err != nil {
			return fmt.Errorf("fetching worklogs of %s: %w", issue.Key, err)
		}
		for _, w := range worklogs {
			if _, err := reducer.Add(issue, subtask, w); err != nil {
				log.Warn().Err(err).Str("issue", issue.Key).Str("author", w.Author).Msg("worklog dropped")
			}
		}
		return nil
	}

	bar := uc.console.ProgressWithTotal("Reading worklogs", len(issues))
	defer bar.Stop()

	for _, issue := range issues {
		if err := add(issue, false); err != nil {
			return entity.EffortReport{}, err
		}
		for _, st := range issue.Subtasks {
			if err := add(entity.Issue{Key: st.Key, Summary: st.Summary}, true); err != nil {
				return entity.EffortReport{}, err
			}
		}
		bar.Increment()
	}

	report := reducer.Report(effortHours)
	report.Start = period.Start
	report.End = period.End
	report.Project = TrackerProject
	return report, nil
}

// RunEffort writes the effort report.
func (uc *TrackerUseCase) RunEffort(ctx context.Context, args *types.CLIArgs, targs types.TrackerArgs) error {
	report, err := uc.Effort(ctx, targs.Period, targs.EffortHours)
	if err != nil {
		return err
	}
	if len(report.UnknownAuthors) > 0 {
		uc.console.LogWarning("Work logged by authors outside the roster was not counted: %s",
			strings.Join(report.UnknownAuthors, ", "))
	}

	table := entity.Table{Title: betweenTitle(targs.Period)}
	if targs.Detailed {
		table.Headers = []string{"Issue", "Summary", "Author", "Hours", "Started"}
		for _, l := range report.Lines {
			key := l.IssueKey
			if l.Subtask {
				key = "  " + key
			}
			table.AddRow(key, l.Summary, l.Author, formatFloat(l.Hours), l.Started.Format(time.DateTime))
		}
	}
	for _, d := range report.Developers {
		table.Notes = append(table.Notes, fmt.Sprintf("%s logged %s hours", d.Developer, formatFloat(d.Hours)))
	}
	table.Notes = append(table.Notes,
		"",
		fmt.Sprintf("Total hours logged to %s Improvement issues: %s", report.Project, formatFloat(report.TotalHours)),
		fmt.Sprintf("Total effort hours worked during this time period: %d", report.EffortHours),
		fmt.Sprintf("Percent effort logged to Improvement issues: %s%%", round2(report.EffortPercent())),
	)

	return uc.publisher.Publish(ctx, args, Report{Name: "effort", Format: "text", Table: table, Doc: report})
}

// StaleIssues counts the open issues of the roster created on or before asOf
// and those not updated in StaleAfterDays. Issues with active subtasks are
// left out of both counts.
func (uc *TrackerUseCase) StaleIssues(ctx context.Context, asOf time.Time) (entity.StaleReport, []entity.Issue, error) {
	assignees := uc.config.StaleAssignees
	if len(assignees) == 0 {
		assignees = uc.config.Developers
	}
	if len(assignees) == 0 {
		return entity.StaleReport{}, nil, types.ErrNoDevelopers
	}

	quoted := make([]string, len(assignees))
	for i, a := range assignees {
		quoted[i] = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
	}
	jql := fmt.Sprintf(staleJQL, strings.Join(quoted, ", "), asOf.Format(analysis.DateLayout))

	status := uc.console.Status("Searching open issues...")
	issues, err := uc.trackerRepo.SearchIssues(ctx, jql, repository.IssueQuery{})
	status.Stop()
	if err != nil {
		return entity.StaleReport{}, nil, fmt.Errorf("searching issues: %w", err)
	}

	report := entity.StaleReport{AsOf: asOf, StaleIssues: []string{}}
	for _, issue := range issues {
		if analysis.HasActiveSubtasks(issue.Subtasks, analysis.InactiveStatuses) {
			report.Skipped = append(report.Skipped, issue.Key)
			continue
		}
		report.OpenIssues++
		if analysis.IsStale(issue.Updated, asOf, StaleAfterDays) {
			report.StaleIssues = append(report.StaleIssues, issue.Key)
		}
	}
	return report, issues, nil
}

// RunStaleIssues writes the stale issue report.
func (uc *TrackerUseCase) RunStaleIssues(ctx context.Context, args *types.CLIArgs, asOf time.Time, detailed bool) error {
	report, issues, err := uc.StaleIssues(ctx, asOf)
	if err != nil {
		return err
	}

	table := entity.Table{Title: fmt.Sprintf("As of %s:", asOf.Format(analysis.DateLayout))}
	if detailed {
		stale := toSet(report.StaleIssues)
		skipped := toSet(report.Skipped)
		table.Headers = []string{"Issue", "Summary", "Updated", "State"}
		for _, i := range issues {
			state := ""
			if _, ok := skipped[i.Key]; ok {
				state = "has active subtasks, skipped"
			} else if _, ok := stale[i.Key]; ok {
				state = "stale"
			}
			table.AddRow(i.Key, i.Summary, analysis.WallClock(i.Updated).Format(time.DateTime), state)
		}
	}
	table.Notes = []string{
		fmt.Sprintf("%d issues are open", report.OpenIssues),
		fmt.Sprintf("%d open issues have not been updated in the last %d days", len(report.StaleIssues), StaleAfterDays),
		fmt.Sprintf("Percent open issues that are stale: %s%%", round2(report.StalePercent())),
	}

	return uc.publisher.Publish(ctx, args, Report{Name: "stale_issues", Format: "text", Table: table, Doc: report})
}

// DueDateChanges summarizes the due date history of every non-backlog issue
// of the projects.
func (uc *TrackerUseCase) DueDateChanges(ctx context.Context, projects []string) ([]entity.DueDateChange, error) {
	if len(projects) == 0 {
		projects = DefaultDueDateProjects
	}

	changes := []entity.DueDateChange{}
	for _, project := range projects {
		status := uc.console.Status(fmt.Sprintf("Searching %s issues...", project))
		issues, err := uc.trackerRepo.SearchIssues(ctx, fmt.Sprintf(dueDateJQL, project), repository.IssueQuery{WithChangelog: true})
		status.Stop()
		if err != nil {
			return nil, fmt.Errorf("searching %s issues: %w", project, err)
		}
		for _, issue := range issues {
			changes = append(changes, analysis.DueDateHistory(issue))
		}
	}
	return changes, nil
}

// RunDueDateChanges writes the due date report, CSV by default.
func (uc *TrackerUseCase) RunDueDateChanges(ctx context.Context, args *types.CLIArgs, projects []string) error {
	changes, err := uc.DueDateChanges(ctx, projects)
	if err != nil {
		return err
	}

	table := entity.Table{
		Headers: []string{"Issue key", "Assignee", "Original Due Date", "Current Due Date", "Number of Due Date Changes"},
	}
	for _, c := range changes {
		assignee := c.Assignee
		if assignee == "" {
			assignee = "None"
		}
		original, current := c.Original, c.Current
		if original == "" {
			original = "None"
		}
		if current == "" {
			current = "None"
		}
		table.AddRow(c.Key, assignee, original, current, fmt.Sprint(c.Changes))
	}

	return uc.publisher.Publish(ctx, args, Report{Name: "duedate_changes", Format: "csv", Table: table, Doc: changes})
}

func betweenTitle(period types.DateRange) string {
	return fmt.Sprintf("Between %s and %s:", period.Start.Format(analysis.DateLayout), period.End.Format(analysis.DateLayout))
}

func round2(v float64) string {
	return formatFloat(math.Round(v*100) / 100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
