package report

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var reportTmpl = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"paragraphs": paragraphs,
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type view struct {
	CompanyName string
	Report      *model.Report
}

// RenderHTML renders the report as a standalone HTML document.
func RenderHTML(r *model.Report, companyName string) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, view{CompanyName: companyName, Report: r}); err != nil {
		return "", eris.Wrap(err, "report: execute template")
	}
	return buf.String(), nil
}

// paragraphs splits a body into non-empty lines.
func paragraphs(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
