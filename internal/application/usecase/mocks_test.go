package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

type mockGraccRepository struct{ mock.Mock }

func (m *mockGraccRepository) Aggregate(ctx context.Context, search *query.Search) (query.Aggregations, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(query.Aggregations), args.Error(1)
}

// Scan feeds the []string of JSON sources given to Return into fn.
func (m *mockGraccRepository) Scan(ctx context.Context, search *query.Search, fn repository.ScanFunc) error {
	args := m.Called(ctx, search, fn)
	if sources, ok := args.Get(0).([]string); ok {
		for _, s := range sources {
			if err := fn(json.RawMessage(s)); err != nil {
				if errors.Is(err, repository.ErrStopScan) {
					return nil
				}
				return err
			}
		}
	}
	return args.Error(1)
}

type mockTopologyRepository struct{ mock.Mock }

func (m *mockTopologyRepository) GetResourceGroups(ctx context.Context, filter repository.TopologyFilter) ([]entity.ResourceGroup, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ResourceGroup), args.Error(1)
}

type mockTrackerRepository struct{ mock.Mock }

func (m *mockTrackerRepository) SearchIssues(ctx context.Context, jql string, q repository.IssueQuery) ([]entity.Issue, error) {
	args := m.Called(ctx, jql, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Issue), args.Error(1)
}

func (m *mockTrackerRepository) GetWorklogs(ctx context.Context, issueKey string) ([]entity.WorklogEntry, error) {
	args := m.Called(ctx, issueKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.WorklogEntry), args.Error(1)
}

func (m *mockTrackerRepository) GetComments(ctx context.Context, issueKey string) ([]entity.Comment, error) {
	args := m.Called(ctx, issueKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Comment), args.Error(1)
}

func (m *mockTrackerRepository) FieldID(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockExportRepository struct{ mock.Mock }

func (m *mockExportRepository) WriteText(w io.Writer, table entity.Table) error {
	return m.Called(w, table).Error(0)
}

func (m *mockExportRepository) WriteCSV(w io.Writer, table entity.Table) error {
	return m.Called(w, table).Error(0)
}

func (m *mockExportRepository) WriteJSON(w io.Writer, v any) error {
	return m.Called(w, v).Error(0)
}

func (m *mockExportRepository) WriteHTML(w io.Writer, table entity.Table) error {
	return m.Called(w, table).Error(0)
}

func (m *mockExportRepository) WritePDF(w io.Writer, table entity.Table) error {
	return m.Called(w, table).Error(0)
}

func (m *mockExportRepository) Render(w io.Writer, format string, table entity.Table, doc any) error {
	return m.Called(w, format, table, doc).Error(0)
}

func (m *mockExportRepository) ExportToFile(table entity.Table, doc any, format, filename, dir string) (string, error) {
	args := m.Called(table, doc, format, filename, dir)
	return args.String(0), args.Error(1)
}

type mockStorageRepository struct{ mock.Mock }

func (m *mockStorageRepository) Upload(ctx context.Context, localPath, destination string) (string, error) {
	args := m.Called(ctx, localPath, destination)
	return args.String(0), args.Error(1)
}

// fakeConsole records what the use cases tell the user.
type fakeConsole struct {
	warnings []string
	errors   []string
	success  []string
	trends   [][]types.MonthlyCount
}

func (c *fakeConsole) LogInfo(format string, a ...interface{}) {}

func (c *fakeConsole) LogWarning(format string, a ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) LogError(format string, a ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) LogSuccess(format string, a ...interface{}) {
	c.success = append(c.success, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) Status(message string) types.StatusHandle { return nopHandle{} }

func (c *fakeConsole) ProgressWithTotal(title string, total int) types.ProgressHandle {
	return nopHandle{}
}

func (c *fakeConsole) DisplayTrendBars(title string, counts []types.MonthlyCount) {
	c.trends = append(c.trends, counts)
}

type nopHandle struct{}

func (nopHandle) Update(string) {}
func (nopHandle) Increment()    {}
func (nopHandle) Stop()         {}

func aggsFromJSON(t *testing.T, s string) query.Aggregations {
	t.Helper()
	var aggs query.Aggregations
	require.NoError(t, json.Unmarshal([]byte(s), &aggs))
	return aggs
}

// searchBody renders a search request the way the backend would receive it.
func searchBody(t *testing.T, s *query.Search) string {
	t.Helper()
	b, err := json.Marshal(s.Body())
	require.NoError(t, err)
	return string(b)
}

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.Developers = []string{"Ada Lovelace", "Grace Hopper"}
	return cfg
}
