package jira

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osg-htc/osg-reports/internal/domain/repository"
)

const issueTemplate = `{
  "key": "HTCONDOR-%d",
  "fields": {
    "summary": "Issue %d",
    "assignee": {"displayName": "Alice Smith"},
    "status": {"name": "Done"},
    "duedate": "2024-02-01",
    "updated": "2024-01-05T10:00:00.000-0600",
    "customfield_100": "{}",
    "subtasks": [{"key": "HTCONDOR-9%d", "fields": {"summary": "sub", "status": {"name": "Backlog"}}}]
  },
  "changelog": {"histories": [
    {"created": "2024-01-03T09:00:00.000-0600", "items": [
      {"field": "status", "fromString": "In Progress", "toString": "Done", "from": "3", "to": "10001"},
      {"field": "duedate", "from": "2024-01-15", "to": "2024-02-01", "fromString": "15/Jan/24", "toString": "1/Feb/24"}
    ]}
  ]}
}`

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var searches []string
	mux := http.NewServeMux()

	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		searches = append(searches, q.Get("startAt")+"/"+q.Get("expand"))
		start, _ := strconv.Atoi(q.Get("startAt"))
		// Three issues served two per page.
		var issues []string
		for i := start; i < 3 && i < start+2; i++ {
			issues = append(issues, fmt.Sprintf(issueTemplate, i+1, i+1, i+1))
		}
		body := fmt.Sprintf(`{"startAt":%d,"maxResults":2,"total":3,"issues":[`, start)
		for i, is := range issues {
			if i > 0 {
				body += ","
			}
			body += is
		}
		_, _ = io.WriteString(w, body+"]}")
	})

	mux.HandleFunc("/rest/api/2/issue/HTCONDOR-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startAt") == "1" {
			_, _ = io.WriteString(w, `{"startAt":1,"maxResults":1,"total":2,"worklogs":[
				{"author":{"displayName":"Mallory"},"started":"2024-01-04T12:00:00.000+0100","timeSpentSeconds":3600}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"startAt":0,"maxResults":1,"total":2,"worklogs":[
			{"author":{"displayName":"Alice Smith"},"started":"2024-01-04T08:00:00.000-0600","timeSpentSeconds":5400}]}`)
	})

	mux.HandleFunc("/rest/api/2/issue/HTCONDOR-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "comment", r.URL.Query().Get("fields"))
		_, _ = io.WriteString(w, `{"key":"HTCONDOR-1","fields":{"comment":{"comments":[{"body":"Code review done"},{"body":"thanks"}]}}}`)
	})

	mux.HandleFunc("/rest/api/2/field", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"summary","name":"Summary"},{"id":"customfield_100","name":"Development"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &searches
}

func TestSearchIssuesFollowsPagination(t *testing.T) {
	srv, searches := newTestServer(t)
	repo, err := NewJiraRepository(srv.URL+"/", "", "", 5*time.Second)
	require.NoError(t, err)

	issues, err := repo.SearchIssues(context.Background(), "project = HTCONDOR", repository.IssueQuery{
		WithChangelog:    true,
		DevelopmentField: "customfield_100",
	})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	// go-jira leaves startAt out of the first request.
	assert.Equal(t, []string{"/changelog", "2/changelog"}, *searches)

	first := issues[0]
	assert.Equal(t, "HTCONDOR-1", first.Key)
	assert.Equal(t, "Issue 1", first.Summary)
	assert.Equal(t, "Alice Smith", first.Assignee)
	assert.Equal(t, "Done", first.Status)
	assert.Equal(t, "2024-02-01", first.DueDate)
	assert.Equal(t, "{}", first.Development)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), first.Updated)
	require.Len(t, first.Subtasks, 1)
	assert.Equal(t, "Backlog", first.Subtasks[0].Status)

	require.Len(t, first.Changelog, 1)
	assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), first.Changelog[0].Created)
	require.Len(t, first.Changelog[0].Items, 2)
	assert.Equal(t, "Done", first.Changelog[0].Items[0].ToString)
	assert.Equal(t, "2024-01-15", first.Changelog[0].Items[1].From)
	assert.Equal(t, "2024-02-01", first.Changelog[0].Items[1].To)
}

func TestGetWorklogsWallClock(t *testing.T) {
	srv, _ := newTestServer(t)
	repo, err := NewJiraRepository(srv.URL+"/", "user", "token", 5*time.Second)
	require.NoError(t, err)

	entries, err := repo.GetWorklogs(context.Background(), "HTCONDOR-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Alice Smith", entries[0].Author)
	assert.Equal(t, 5400, entries[0].TimeSpentSeconds)
	assert.Equal(t, time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC), entries[0].Started)
	assert.Equal(t, "Mallory", entries[1].Author)
	assert.Equal(t, time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC), entries[1].Started)
}

func TestGetComments(t *testing.T) {
	srv, _ := newTestServer(t)
	repo, err := NewJiraRepository(srv.URL+"/", "", "", 5*time.Second)
	require.NoError(t, err)

	comments, err := repo.GetComments(context.Background(), "HTCONDOR-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Code review done", comments[0].Body)
}

func TestFieldID(t *testing.T) {
	srv, _ := newTestServer(t)
	repo, err := NewJiraRepository(srv.URL+"/", "", "", 5*time.Second)
	require.NoError(t, err)

	id, ok, err := repo.FieldID(context.Background(), "Development")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "customfield_100", id)

	_, ok, err = repo.FieldID(context.Background(), "Sprint")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", stringValue(nil))
	assert.Equal(t, "{}", stringValue("{}"))
	assert.Equal(t, `{"a":1}`, stringValue(map[string]any{"a": 1}))
	assert.Equal(t, "3", stringValue(float64(3)))
}

func TestConvertIssueWarnsOnBadChangelogTimestamp(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	issue := &jira.Issue{
		Key: "HTCONDOR-7",
		Changelog: &jira.Changelog{Histories: []jira.ChangelogHistory{
			{Id: "1", Created: "yesterday", Items: []jira.ChangelogItems{{Field: "status", ToString: "Done"}}},
			{Id: "2", Created: "2024-01-03T09:00:00.000+0000", Items: []jira.ChangelogItems{{Field: "duedate"}}},
		}},
	}

	got := convertIssue(&logger, issue, "")

	require.Len(t, got.Changelog, 1)
	assert.Equal(t, "duedate", got.Changelog[0].Items[0].Field)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"issue":"HTCONDOR-7"`)
	assert.Contains(t, logs.String(), `"history":"1"`)
}
