// Package jira adapts the Jira REST API to the tracker repository.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
)

// PageSize is the number of issues requested per search page.
const PageSize = 100

// changelogLayout is how Jira formats changelog timestamps.
const changelogLayout = "2006-01-02T15:04:05.000-0700"

// JiraRepositoryImpl implements repository.TrackerRepository.
type JiraRepositoryImpl struct {
	client *jira.Client
}

// NewJiraRepository returns a repository for baseURL. Anonymous access is
// used when username is empty; otherwise password is an API token.
func NewJiraRepository(baseURL, username, password string, timeout time.Duration) (repository.TrackerRepository, error) {
	httpClient := &http.Client{Timeout: timeout}
	if username != "" {
		tp := jira.BasicAuthTransport{
			Username: username,
			Password: password,
		}
		httpClient = tp.Client()
		httpClient.Timeout = timeout
	}
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot create Jira client: %w", err)
	}
	return &JiraRepositoryImpl{client: client}, nil
}

// SearchIssues pages through every issue matching jql.
func (r *JiraRepositoryImpl) SearchIssues(ctx context.Context, jql string, q repository.IssueQuery) ([]entity.Issue, error) {
	opts := &jira.SearchOptions{MaxResults: PageSize}
	if q.WithChangelog {
		opts.Expand = "changelog"
	}

	logger := zerolog.Ctx(ctx)
	var issues []entity.Issue
	for {
		page, resp, err := r.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return nil, fmt.Errorf("error searching issues %q: %w", jql, err)
		}
		for i := range page {
			issues = append(issues, convertIssue(logger, &page[i], q.DevelopmentField))
		}
		logger.Debug().Str("jql", jql).Int("start", opts.StartAt).Int("count", len(page)).Msg("jira search page")

		if len(page) == 0 || resp == nil || opts.StartAt+len(page) >= resp.Total {
			break
		}
		opts.StartAt += len(page)
	}
	return issues, nil
}

type worklogPage struct {
	StartAt int `url:"startAt"`
}

// GetWorklogs returns every worklog entry of an issue.
func (r *JiraRepositoryImpl) GetWorklogs(ctx context.Context, issueKey string) ([]entity.WorklogEntry, error) {
	var entries []entity.WorklogEntry
	start := 0
	for {
		wl, _, err := r.client.Issue.GetWorklogsWithContext(ctx, issueKey, jira.WithQueryOptions(&worklogPage{StartAt: start}))
		if err != nil {
			return nil, fmt.Errorf("error getting worklogs of %s: %w", issueKey, err)
		}
		for _, rec := range wl.Worklogs {
			entry := entity.WorklogEntry{TimeSpentSeconds: rec.TimeSpentSeconds}
			if rec.Author != nil {
				entry.Author = rec.Author.DisplayName
			}
			if rec.Started != nil {
				entry.Started = analysis.WallClock(time.Time(*rec.Started))
			}
			entries = append(entries, entry)
		}
		if len(wl.Worklogs) == 0 || start+len(wl.Worklogs) >= wl.Total {
			break
		}
		start += len(wl.Worklogs)
	}
	return entries, nil
}

// GetComments returns the comments of an issue.
func (r *JiraRepositoryImpl) GetComments(ctx context.Context, issueKey string) ([]entity.Comment, error) {
	issue, _, err := r.client.Issue.GetWithContext(ctx, issueKey, &jira.GetQueryOptions{Fields: "comment"})
	if err != nil {
		return nil, fmt.Errorf("error getting comments of %s: %w", issueKey, err)
	}
	if issue.Fields == nil || issue.Fields.Comments == nil {
		return nil, nil
	}
	comments := make([]entity.Comment, 0, len(issue.Fields.Comments.Comments))
	for _, c := range issue.Fields.Comments.Comments {
		if c != nil {
			comments = append(comments, entity.Comment{Body: c.Body})
		}
	}
	return comments, nil
}

// FieldID looks up a field id by its display name.
func (r *JiraRepositoryImpl) FieldID(ctx context.Context, name string) (string, bool, error) {
	fields, _, err := r.client.Field.GetListWithContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("error listing fields: %w", err)
	}
	for _, f := range fields {
		if f.Name == name {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

func convertIssue(logger *zerolog.Logger, issue *jira.Issue, developmentField string) entity.Issue {
	out := entity.Issue{Key: issue.Key}

	if f := issue.Fields; f != nil {
		out.Summary = f.Summary
		if f.Assignee != nil {
			out.Assignee = f.Assignee.DisplayName
		}
		if f.Status != nil {
			out.Status = f.Status.Name
		}
		if !time.Time(f.Duedate).IsZero() {
			out.DueDate = time.Time(f.Duedate).Format("2006-01-02")
		}
		out.Updated = analysis.WallClock(time.Time(f.Updated))
		if developmentField != "" {
			out.Development = stringValue(f.Unknowns[developmentField])
		}
		for _, st := range f.Subtasks {
			if st == nil {
				continue
			}
			sub := entity.Subtask{Key: st.Key, Summary: st.Fields.Summary}
			if st.Fields.Status != nil {
				sub.Status = st.Fields.Status.Name
			}
			out.Subtasks = append(out.Subtasks, sub)
		}
	}

	if issue.Changelog != nil {
		for _, h := range issue.Changelog.Histories {
			created, err := time.Parse(changelogLayout, h.Created)
			if err != nil {
				logger.Warn().Err(err).Str("issue", issue.Key).Str("history", h.Id).
					Msg("skipping changelog entry with unparseable timestamp")
				continue
			}
			history := entity.ChangeHistory{Created: analysis.WallClock(created)}
			for _, item := range h.Items {
				history.Items = append(history.Items, entity.ChangeItem{
					Field:      item.Field,
					From:       stringValue(item.From),
					To:         stringValue(item.To),
					FromString: item.FromString,
					ToString:   item.ToString,
				})
			}
			out.Changelog = append(out.Changelog, history)
		}
	}
	return out
}

// stringValue renders a loosely typed JSON value; nil is "".
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
