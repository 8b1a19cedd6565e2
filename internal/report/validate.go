package report

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// ErrInvalidReport marks a structurally unusable report.
var ErrInvalidReport = eris.New("report: invalid structure")

// Validate checks that every section is present once, in order, with a body.
func Validate(r *model.Report) error {
	if r == nil {
		return eris.Wrap(ErrInvalidReport, "nil report")
	}
	if r.DiagnosisID == "" {
		return eris.Wrap(ErrInvalidReport, "missing diagnosis id")
	}
	if len(r.Sections) != len(model.AllSections) {
		return eris.Wrapf(ErrInvalidReport, "expected %d sections, got %d", len(model.AllSections), len(r.Sections))
	}
	for i, want := range model.AllSections {
		s := r.Sections[i]
		if s.Key != want {
			return eris.Wrapf(ErrInvalidReport, "section %d is %q, want %q", i, s.Key, want)
		}
		if strings.TrimSpace(s.Body) == "" {
			return eris.Wrapf(ErrInvalidReport, "section %q is empty", s.Key)
		}
	}
	return nil
}
