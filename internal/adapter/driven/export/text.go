package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// WriteText writes the title, an aligned table and the notes. A table
// without headers is written as a bulleted list.
func (r *ExportRepositoryImpl) WriteText(w io.Writer, table entity.Table) error {
	var b strings.Builder

	if table.Title != "" {
		b.WriteString(table.Title)
		b.WriteString("\n")
	}

	if len(table.Headers) == 0 {
		for _, row := range table.Rows {
			b.WriteString(" - ")
			b.WriteString(strings.Join(row, " "))
			b.WriteString("\n")
		}
	} else if len(table.Rows) > 0 {
		data := pterm.TableData{table.Headers}
		data = append(data, table.Rows...)
		rendered, err := pterm.DefaultTable.
			WithHasHeader().
			WithHeaderStyle(pterm.NewStyle()).
			WithSeparator("  ").
			WithData(data).
			Srender()
		if err != nil {
			return fmt.Errorf("error rendering table: %w", err)
		}
		for _, line := range strings.Split(strings.TrimRight(cleanANSI(rendered), "\n"), "\n") {
			b.WriteString(strings.TrimRight(line, " "))
			b.WriteString("\n")
		}
	}

	for _, note := range table.Notes {
		b.WriteString(note)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
