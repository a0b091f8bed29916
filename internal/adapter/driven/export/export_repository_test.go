package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

func newTestRepo() *ExportRepositoryImpl {
	return &ExportRepositoryImpl{now: func() time.Time {
		return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	}}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	counts := map[string]int{
		"/ospool/ap20/data/alice":   12,
		"/ospool/ap21/data/bob":     3,
		`quoted "name", with comma`: 7,
	}
	table := entity.Table{Headers: []string{"Identity", "Count"}}
	for _, id := range []string{"/ospool/ap20/data/alice", "/ospool/ap21/data/bob", `quoted "name", with comma`} {
		table.AddRow(id, itoa(counts[id]))
	}

	var buf bytes.Buffer
	require.NoError(t, newTestRepo().WriteCSV(&buf, table))
	assert.NotContains(t, buf.String(), "\r\n")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Identity", "Count"}, records[0])

	got := map[string]int{}
	for _, rec := range records[1:] {
		got[rec[0]] = atoi(t, rec[1])
	}
	assert.Equal(t, counts, got)
}

func TestMarshalCollapsed(t *testing.T) {
	doc := map[string]any{
		"hours":  []string{"1,234", "56,789", "1,000,000"},
		"empty":  []string{},
		"nested": []map[string]int{{"a": 1}},
		"long":   []string{strings.Repeat("x", 60), strings.Repeat("y", 60)},
		"html":   "<b>&</b>",
	}

	out, err := MarshalCollapsed(doc)
	require.NoError(t, err)

	expected := `{
    "empty": [],
    "hours": ["1,234", "56,789", "1,000,000"],
    "html": "<b>&</b>",
    "long": [
        "` + strings.Repeat("x", 60) + `",
        "` + strings.Repeat("y", 60) + `"
    ],
    "nested": [
        {
            "a": 1
        }
    ]
}`
	assert.Equal(t, expected, string(out))
}

func TestMarshalCollapsedKeepsStructOrder(t *testing.T) {
	report := entity.OriginUsersReport{
		NewUsers:     1,
		NewUserPaths: []string{"/ospool/ap20/data/carol"},
		ActiveUsers:  2,
		DateRange:    "01 Jan 2024 - 31 Jan 2024",
	}
	out, err := MarshalCollapsed(report)
	require.NoError(t, err)
	assert.Equal(t, `{
    "Active Users": 2,
    "Date Range:": "01 Jan 2024 - 31 Jan 2024",
    "New Users (directory paths)": ["/ospool/ap20/data/carol"],
    "Number of new users": 1
}`, string(out))
}

func TestWriteHTMLEscapes(t *testing.T) {
	table := entity.Table{
		Title:   "OSG CPU Hours for CC*",
		Headers: []string{"Last 30 Days", "Last 90 Days"},
	}
	table.AddRow("1,234", "<script>")

	var buf bytes.Buffer
	require.NoError(t, newTestRepo().WriteHTML(&buf, table))
	html := buf.String()
	assert.Contains(t, html, "<h2>OSG CPU Hours for CC*</h2>")
	assert.Contains(t, html, "<th>Last 30 Days</th>")
	assert.Contains(t, html, "<td>1,234</td>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestWriteTextList(t *testing.T) {
	table := entity.Table{Title: "2 OSDF Facilities:"}
	table.AddRow("Alpha University")
	table.AddRow("Beta Lab")

	var buf bytes.Buffer
	require.NoError(t, newTestRepo().WriteText(&buf, table))
	assert.Equal(t, "2 OSDF Facilities:\n - Alpha University\n - Beta Lab\n", buf.String())
}

func TestWriteTextTable(t *testing.T) {
	table := entity.Table{Headers: []string{"CC*", "Facility"}, Notes: []string{"done"}}
	table.AddRow("yes", "FacilityA")
	table.AddRow("", "FacilityB")

	var buf bytes.Buffer
	require.NoError(t, newTestRepo().WriteText(&buf, table))
	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "FacilityA")
	assert.Contains(t, out, "FacilityB")
	assert.True(t, strings.HasSuffix(out, "done\n"))
	assert.Less(t, strings.Index(out, "FacilityA"), strings.Index(out, "FacilityB"))
}

func TestRenderUnsupportedFormat(t *testing.T) {
	err := newTestRepo().Render(&bytes.Buffer{}, "xml", entity.Table{}, nil)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	table := entity.Table{Headers: []string{"a"}}
	table.AddRow("1")

	path, err := newTestRepo().ExportToFile(table, nil, "csv", "usage", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "usage_20240203_040506.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))

	path, err = newTestRepo().ExportToFile(table, nil, "pdf", "usage", dir)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
