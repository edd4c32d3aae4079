// Package email sends approved letters to the practice records mailbox.
package email

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/pkg/logger"
)

type Mailer interface {
	SendLetter(ctx context.Context, letter *Letter) error
}

// Letter is one outgoing message with a PDF attachment.
type Letter struct {
	Subject        string
	Body           string
	AttachmentName string
	PDF            []byte
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	from   string
	to     string
	send   func(...*gomail.Message) error
	logger *logger.Logger
}

func NewSMTPMailer(cfg config.MailConfig, log *logger.Logger) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		from:   cfg.From,
		to:     cfg.To,
		send:   dialer.DialAndSend,
		logger: log,
	}
}

// newMailerWithSender is used by tests to capture messages.
func newMailerWithSender(cfg config.MailConfig, sender gomail.Sender, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		from: cfg.From,
		to:   cfg.To,
		send: func(msgs ...*gomail.Message) error {
			return gomail.Send(sender, msgs...)
		},
		logger: log,
	}
}

func (m *SMTPMailer) SendLetter(ctx context.Context, letter *Letter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", letter.Subject)
	msg.SetBody("text/plain", letter.Body)
	if len(letter.PDF) > 0 {
		pdf := letter.PDF
		msg.Attach(letter.AttachmentName,
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}),
		)
	}

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send letter mail: %w", err)
	}

	m.logger.Info("letter mailed", "to", m.to, "subject", letter.Subject)
	return nil
}

// NopMailer discards everything. Used when mail is disabled.
type NopMailer struct{}

func (NopMailer) SendLetter(context.Context, *Letter) error { return nil }
