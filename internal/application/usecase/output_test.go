package usecase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osg-htc/osg-reports/internal/adapter/driven/export"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

func sampleReport() Report {
	table := entity.Table{Headers: []string{"Facility"}}
	table.AddRow("FacilityA")
	return Report{Name: "sample", Format: "text", Table: table}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		name     string
		args     types.CLIArgs
		fallback string
		want     string
	}{
		{"flag wins", types.CLIArgs{Format: "CSV", Output: "x.json"}, "html", "csv"},
		{"extension", types.CLIArgs{Output: "report.json"}, "html", "json"},
		{"txt is text", types.CLIArgs{Output: "report.txt"}, "csv", "text"},
		{"unknown extension", types.CLIArgs{Output: "report.out"}, "csv", "csv"},
		{"report default", types.CLIArgs{}, "json", "json"},
		{"text last", types.CLIArgs{}, "", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputFormat(&tt.args, tt.fallback))
		})
	}
}

func TestPublish_RendersToStdout(t *testing.T) {
	var out bytes.Buffer
	p := NewPublisher(export.NewExportRepository(), nil, &fakeConsole{}, &out)

	require.NoError(t, p.Publish(context.Background(), &types.CLIArgs{Format: "csv"}, sampleReport()))
	assert.Equal(t, "Facility\nFacilityA\n", out.String())
}

func TestPublish_WritesOutputFileInExtensionFormat(t *testing.T) {
	var out bytes.Buffer
	console := &fakeConsole{}
	p := NewPublisher(export.NewExportRepository(), nil, console, &out)
	path := filepath.Join(t.TempDir(), "facilities.csv")

	require.NoError(t, p.Publish(context.Background(), &types.CLIArgs{Output: path}, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Facility\nFacilityA\n", string(data))
	assert.Empty(t, out.String())
	assert.Equal(t, []string{"Report written to " + path}, console.success)
}

func TestPublish_ExportsEveryReportType(t *testing.T) {
	// Given one report type that exports and one that fails
	report := sampleReport()
	exportRepo := new(mockExportRepository)
	exportRepo.On("ExportToFile", report.Table, nil, "csv", "weekly", "/tmp/out").Return("/tmp/out/weekly_20240601_1530.csv", nil)
	exportRepo.On("ExportToFile", report.Table, nil, "pdf", "weekly", "/tmp/out").Return("", errors.New("disk full"))

	console := &fakeConsole{}
	p := NewPublisher(exportRepo, nil, console, &bytes.Buffer{})

	// When the report is published with a report name
	err := p.Publish(context.Background(), &types.CLIArgs{
		ReportName: "weekly",
		ReportType: []string{"csv", "pdf"},
		Dir:        "/tmp/out",
	}, report)

	// Then the failure is logged without stopping the loop and nothing goes to stdout
	require.NoError(t, err)
	assert.Equal(t, []string{"Successfully exported to CSV: /tmp/out/weekly_20240601_1530.csv"}, console.success)
	assert.Equal(t, []string{"Failed to export to PDF: disk full"}, console.errors)
	exportRepo.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_FailsWhenNoReportTypeExports(t *testing.T) {
	// Given report types that all fail to export
	report := sampleReport()
	exportRepo := new(mockExportRepository)
	exportRepo.On("ExportToFile", report.Table, nil, mock.Anything, "weekly", "/tmp/out").Return("", errors.New("disk full"))

	console := &fakeConsole{}
	p := NewPublisher(exportRepo, nil, console, &bytes.Buffer{})

	// When the report is published with a report name
	err := p.Publish(context.Background(), &types.CLIArgs{
		ReportName: "weekly",
		ReportType: []string{"csv", "pdf"},
		Dir:        "/tmp/out",
	}, report)

	// Then the run fails instead of exiting cleanly with nothing written
	assert.ErrorIs(t, err, types.ErrNothingExported)
	assert.Len(t, console.errors, 2)
	assert.Empty(t, console.success)
}

func TestPublish_UploadsExports(t *testing.T) {
	report := sampleReport()
	exportRepo := new(mockExportRepository)
	exportRepo.On("ExportToFile", report.Table, nil, "text", "weekly", "").Return("weekly_20240601_1530.txt", nil)

	storage := new(mockStorageRepository)
	storage.On("Upload", mock.Anything, "weekly_20240601_1530.txt", "s3://osg-reports/weekly/").
		Return("s3://osg-reports/weekly/weekly_20240601_1530.txt", nil)

	console := &fakeConsole{}
	p := NewPublisher(exportRepo, storage, console, &bytes.Buffer{})

	require.NoError(t, p.Publish(context.Background(), &types.CLIArgs{
		ReportName: "weekly",
		Upload:     "s3://osg-reports/weekly/",
	}, report))

	assert.Contains(t, console.success, "Uploaded s3://osg-reports/weekly/weekly_20240601_1530.txt")
	storage.AssertExpectations(t)
}

func TestPublish_UploadWithoutStorageFails(t *testing.T) {
	exportRepo := new(mockExportRepository)
	exportRepo.On("ExportToFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("weekly.txt", nil)

	p := NewPublisher(exportRepo, nil, &fakeConsole{}, &bytes.Buffer{})
	err := p.Publish(context.Background(), &types.CLIArgs{ReportName: "weekly", Upload: "s3://bucket/"}, sampleReport())

	assert.Error(t, err)
}

func TestPrintLines(t *testing.T) {
	var out bytes.Buffer
	p := NewPublisher(nil, nil, &fakeConsole{}, &out)

	require.NoError(t, p.PrintLines([]string{"a", "b"}))
	assert.Equal(t, "a\nb\n", out.String())
}
