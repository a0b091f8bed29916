package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatText, FormatCSV, FormatJSON, FormatHTML, FormatPDF}

// ExportRepositoryImpl implements repository.ExportRepository.
type ExportRepositoryImpl struct {
	now func() time.Time
}

// NewExportRepository creates a new ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{now: time.Now}
}

// Render writes table (or doc, for JSON) to w in format.
func (r *ExportRepositoryImpl) Render(w io.Writer, format string, table entity.Table, doc any) error {
	switch strings.ToLower(format) {
	case FormatText, "txt", "":
		return r.WriteText(w, table)
	case FormatCSV:
		return r.WriteCSV(w, table)
	case FormatJSON:
		if doc != nil {
			return r.WriteJSON(w, doc)
		}
		return r.WriteJSON(w, table)
	case FormatHTML:
		return r.WriteHTML(w, table)
	case FormatPDF:
		return r.WritePDF(w, table)
	default:
		return fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes the header and rows with LF line endings. Notes are not part of CSV output.
func (r *ExportRepositoryImpl) WriteCSV(w io.Writer, table entity.Table) error {
	writer := csv.NewWriter(w)
	if len(table.Headers) > 0 {
		if err := writer.Write(table.Headers); err != nil {
			return fmt.Errorf("error writing CSV header: %w", err)
		}
	}
	for _, row := range table.Rows {
		cleaned := make([]string, len(row))
		for i, cell := range row {
			cleaned[i] = cleanANSI(cell)
		}
		if err := writer.Write(cleaned); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportToFile renders into <dir>/<filename>_<timestamp>.<ext>.
func (r *ExportRepositoryImpl) ExportToFile(table entity.Table, doc any, format, filename, dir string) (string, error) {
	format = strings.ToLower(format)
	ext := format
	if format == FormatText {
		ext = "txt"
	}

	outputFilename, err := generateFilename(filename, dir, ext, r.now())
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", strings.ToUpper(ext), err)
	}
	defer file.Close()

	if err := r.Render(file, format, table, doc); err != nil {
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", outputFilename, err)
	}

	return filepath.Abs(outputFilename)
}

// generateFilename builds a timestamped file name and makes sure the directory exists.
func generateFilename(base, dir, ext string, now time.Time) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := now.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}

var ansiRegex = regexp.MustCompile(`\x1B\[[0-9;]*[A-Za-z]`)

func cleanANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}
