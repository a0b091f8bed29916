package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// Report is a finished report ready to be written: the table every format can
// render plus an optional document used for JSON output.
type Report struct {
	// Name is the file base name used when exporting without --report-name.
	Name string
	// Format is used when neither --format nor the output file extension
	// selects one.
	Format string
	Table  entity.Table
	Doc    any
}

// Publisher writes reports to stdout or --output and exports timestamped
// copies for every requested --report-type, optionally uploading them.
type Publisher struct {
	exportRepo  repository.ExportRepository
	storageRepo repository.StorageRepository
	console     types.ConsoleInterface
	stdout      io.Writer
}

// NewPublisher creates a new publisher. storageRepo may be nil when uploads
// are not configured.
func NewPublisher(
	exportRepo repository.ExportRepository,
	storageRepo repository.StorageRepository,
	console types.ConsoleInterface,
	stdout io.Writer,
) *Publisher {
	return &Publisher{
		exportRepo:  exportRepo,
		storageRepo: storageRepo,
		console:     console,
		stdout:      stdout,
	}
}

// Publish writes report according to args.
func (p *Publisher) Publish(ctx context.Context, args *types.CLIArgs, report Report) error {
	format := outputFormat(args, report.Format)

	if args.Output != "" {
		if err := p.writeFile(args.Output, format, report); err != nil {
			return err
		}
		p.console.LogSuccess("Report written to %s", args.Output)
	} else if args.ReportName == "" {
		if err := p.exportRepo.Render(p.stdout, format, report.Table, report.Doc); err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
	}

	if args.ReportName == "" {
		return nil
	}

	reportTypes := args.ReportType
	if len(reportTypes) == 0 {
		reportTypes = []string{format}
	}

	exported := 0
	for _, reportType := range reportTypes {
		path, err := p.exportRepo.ExportToFile(report.Table, report.Doc, reportType, args.ReportName, args.Dir)
		if err != nil {
			p.console.LogError("Failed to export to %s: %s", strings.ToUpper(reportType), err)
			continue
		}
		exported++
		p.console.LogSuccess("Successfully exported to %s: %s", strings.ToUpper(reportType), path)

		if args.Upload == "" {
			continue
		}
		if p.storageRepo == nil {
			return fmt.Errorf("upload requested but no storage is configured")
		}
		uri, err := p.storageRepo.Upload(ctx, path, args.Upload)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
		zerolog.Ctx(ctx).Debug().Str("path", path).Str("uri", uri).Msg("report uploaded")
		p.console.LogSuccess("Uploaded %s", uri)
	}

	if exported == 0 {
		return fmt.Errorf("%w: none of %s", types.ErrNothingExported, strings.Join(reportTypes, ", "))
	}
	return nil
}

// PrintLines writes each line to stdout as is.
func (p *Publisher) PrintLines(lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.stdout, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) writeFile(path, format string, report Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if err := p.exportRepo.Render(f, format, report.Table, report.Doc); err != nil {
		f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	return f.Close()
}

// outputFormat picks --format, then the --output extension, then the
// report's own default.
func outputFormat(args *types.CLIArgs, fallback string) string {
	if args.Format != "" {
		return strings.ToLower(args.Format)
	}
	if args.Output != "" {
		switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(args.Output), ".")); ext {
		case "csv", "json", "html", "pdf":
			return ext
		case "txt":
			return "text"
		}
	}
	if fallback != "" {
		return fallback
	}
	return "text"
}
