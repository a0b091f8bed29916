package export

import (
	"fmt"
	"html/template"
	"io"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<style>
table {font-family: monospace; border-collapse: collapse}
th, td {text-align: center; padding: 2px 8px}
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<table border=1>
{{- if .Headers}}
<tr>
{{- range .Headers}}
<th>{{.}}</th>
{{- end}}
</tr>
{{- end}}
{{- range .Rows}}
<tr>
{{- range .}}
<td>{{.}}</td>
{{- end}}
</tr>
{{- end}}
</table>
{{- range .Notes}}
<p>{{.}}</p>
{{- end}}
</body>
</html>
`))

// WriteHTML writes the table as a standalone HTML page.
func (r *ExportRepositoryImpl) WriteHTML(w io.Writer, table entity.Table) error {
	if err := htmlTemplate.Execute(w, table); err != nil {
		return fmt.Errorf("error rendering HTML: %w", err)
	}
	return nil
}
