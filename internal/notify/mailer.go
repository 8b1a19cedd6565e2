package notify

import (
	"bytes"
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"

	"github.com/sells-group/ai-diagnosis/internal/config"
)

// Message is one outgoing HTML email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment is a file attached to a Message.
type Attachment struct {
	Name    string
	Content []byte
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay with go-mail.
type SMTPMailer struct {
	cfg config.EmailConfig
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	return &SMTPMailer{cfg: cfg}
}

// Send dials the relay and delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := mail.NewMsg()
	if err := out.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return eris.Wrap(err, "notify: set from")
	}
	if err := out.To(msg.To); err != nil {
		return eris.Wrapf(err, "notify: set recipient %s", msg.To)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	for _, a := range msg.Attachments {
		if err := out.AttachReader(a.Name, bytes.NewReader(a.Content)); err != nil {
			return eris.Wrapf(err, "notify: attach %s", a.Name)
		}
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.TimeoutSecs > 0 {
		opts = append(opts, mail.WithTimeout(time.Duration(m.cfg.TimeoutSecs)*time.Second))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return eris.Wrap(err, "notify: create smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return eris.Wrapf(err, "notify: send to %s", msg.To)
	}
	return nil
}
