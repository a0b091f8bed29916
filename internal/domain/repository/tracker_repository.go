package repository

import (
	"context"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// IssueQuery tunes what SearchIssues fetches besides the basic fields.
type IssueQuery struct {
	WithChangelog bool
	// DevelopmentField is the id of the field copied into Issue.Development.
	DevelopmentField string
}

// TrackerRepository defines the interface for issue tracker interactions.
type TrackerRepository interface {
	// SearchIssues returns every issue matching jql, following pagination.
	SearchIssues(ctx context.Context, jql string, q IssueQuery) ([]entity.Issue, error)
	GetWorklogs(ctx context.Context, issueKey string) ([]entity.WorklogEntry, error)
	GetComments(ctx context.Context, issueKey string) ([]entity.Comment, error)
	// FieldID resolves a field display name ("Development") to its id.
	FieldID(ctx context.Context, name string) (string, bool, error)
}
