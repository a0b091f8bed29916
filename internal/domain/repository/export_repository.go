package repository

import (
	"io"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// ExportRepository renders reports.
type ExportRepository interface {
	WriteText(w io.Writer, table entity.Table) error
	WriteCSV(w io.Writer, table entity.Table) error
	WriteJSON(w io.Writer, v any) error
	WriteHTML(w io.Writer, table entity.Table) error
	WritePDF(w io.Writer, table entity.Table) error

	// Render writes the report in format. JSON output uses doc when it is
	// non-nil and the table otherwise.
	Render(w io.Writer, format string, table entity.Table, doc any) error

	// ExportToFile renders into a timestamped file in dir and returns its absolute path.
	ExportToFile(table entity.Table, doc any, format, filename, dir string) (string, error)
}
