// Package notify sends the prospect and administrator emails. Delivery is
// best-effort: every failure is logged and returned, and callers decide
// whether to mention it.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// ErrDisabled is returned when no mailer is configured.
var ErrDisabled = eris.New("notify: email disabled")

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var emailTmpl = template.Must(template.New("email").Funcs(template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"kst":   formatKST,
}).ParseFS(templateFS, "templates/*.html.tmpl"))

var kst = time.FixedZone("KST", 9*60*60)

func formatKST(t time.Time) string {
	return t.In(kst).Format("2006-01-02 15:04")
}

// Notifier composes and sends the diagnosis emails.
type Notifier struct {
	mailer Mailer
	admin  string
	now    func() time.Time
}

// New creates a Notifier. A nil mailer disables delivery; an empty admin
// address disables the administrator emails.
func New(mailer Mailer, adminEmail string) *Notifier {
	return &Notifier{mailer: mailer, admin: adminEmail, now: time.Now}
}

type submissionView struct {
	Submission model.Submission
	Now        time.Time
}

type completionView struct {
	Submission model.Submission
	Gap        model.GapAnalysis
	Summary    string
	Maturity   string
}

type failureView struct {
	Submission model.Submission
	Stage      model.State
	Error      string
	Now        time.Time
}

// Confirmation tells the prospect their submission was received.
func (n *Notifier) Confirmation(ctx context.Context, sub model.Submission) error {
	return n.send(ctx, "confirmation", sub.Contact.Email,
		fmt.Sprintf("[AI 역량진단] %s 진단 신청이 접수되었습니다", sub.Company.Name),
		submissionView{Submission: sub, Now: n.now()}, nil)
}

// Completion delivers the finished report. The rendered HTML is attached.
func (n *Notifier) Completion(ctx context.Context, sub model.Submission, gap model.GapAnalysis, rep *model.Report) error {
	view := completionView{Submission: sub, Gap: gap, Maturity: gap.Maturity.Label()}
	var attachments []Attachment
	if rep != nil {
		if s, ok := rep.Section(model.SectionExecutiveSummary); ok {
			view.Summary = s.Body
		}
		if rep.HTML != "" {
			attachments = append(attachments, Attachment{
				Name:    fmt.Sprintf("AI역량진단_%s.html", sub.ID),
				Content: []byte(rep.HTML),
			})
		}
	}
	return n.send(ctx, "completion", sub.Contact.Email,
		fmt.Sprintf("[AI 역량진단] %s 진단 결과 보고서", sub.Company.Name),
		view, attachments)
}

// Delayed tells the prospect the report will arrive later. It never exposes
// the underlying error.
func (n *Notifier) Delayed(ctx context.Context, sub model.Submission) error {
	return n.send(ctx, "delayed", sub.Contact.Email,
		"[AI 역량진단] 보고서 작성이 지연되고 있습니다",
		submissionView{Submission: sub, Now: n.now()}, nil)
}

// AdminError reports a failed run to the administrator.
func (n *Notifier) AdminError(ctx context.Context, sub model.Submission, stage model.State, cause error) error {
	if n.admin == "" {
		return nil
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return n.send(ctx, "admin_error", n.admin,
		fmt.Sprintf("[진단 오류] %s (%s) %s", sub.Company.Name, sub.ID, stage),
		failureView{Submission: sub, Stage: stage, Error: msg, Now: n.now()}, nil)
}

// AdminTimeout reports a run that hit the global timeout.
func (n *Notifier) AdminTimeout(ctx context.Context, sub model.Submission, stage model.State) error {
	if n.admin == "" {
		return nil
	}
	return n.send(ctx, "admin_timeout", n.admin,
		fmt.Sprintf("[진단 타임아웃] %s (%s)", sub.Company.Name, sub.ID),
		failureView{Submission: sub, Stage: stage, Now: n.now()}, nil)
}

func (n *Notifier) send(ctx context.Context, tmpl, to, subject string, data any, attachments []Attachment) error {
	log := zap.L().With(zap.String("email", tmpl), zap.String("to", to))
	if n.mailer == nil {
		log.Debug("notify: email disabled, skipping")
		return ErrDisabled
	}
	if to == "" {
		return eris.Errorf("notify: %s has no recipient", tmpl)
	}

	var buf bytes.Buffer
	if err := emailTmpl.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return eris.Wrapf(err, "notify: render %s", tmpl)
	}

	err := n.mailer.Send(ctx, Message{To: to, Subject: subject, HTML: buf.String(), Attachments: attachments})
	if err != nil {
		log.Warn("notify: send failed", zap.Error(err))
		return err
	}
	log.Info("notify: email sent")
	return nil
}
