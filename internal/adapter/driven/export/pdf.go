package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// WritePDF writes the table on A4 pages, landscape when it has more than four columns.
func (r *ExportRepositoryImpl) WritePDF(w io.Writer, table entity.Table) error {
	orientation, pageWidth := "P", 190.0
	if len(table.Headers) > 4 {
		orientation, pageWidth = "L", 277.0
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerColor := [3]int{40, 40, 40}
	headerTextColor := [3]int{255, 255, 255}
	bodyTextColor := [3]int{50, 50, 50}
	lineColor := [3]int{200, 200, 200}

	generated := r.now().Format("2006-01-02")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Generated by osg-reports | %s", generated)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	if table.Title != "" {
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 12, tr("  "+table.Title), "", 1, "L", true, 0, "")
		pdf.Ln(6)
	}

	columns := len(table.Headers)
	if columns == 0 && len(table.Rows) > 0 {
		columns = len(table.Rows[0])
	}
	colWidth := pageWidth
	if columns > 0 {
		colWidth = pageWidth / float64(columns)
	}

	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	if len(table.Headers) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		for _, h := range table.Headers {
			pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	for _, row := range table.Rows {
		for _, cell := range row {
			pdf.CellFormat(colWidth, 6, tr(cleanANSI(cell)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(table.Notes) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, note := range table.Notes {
			pdf.MultiCell(pageWidth, 5, tr(note), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}
