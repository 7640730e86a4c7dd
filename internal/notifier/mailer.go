package notifier

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message. Delivery and retry policy belong to the
// implementation; a failed send never touches quote state.
type Mailer interface {
	Send(e Email) error
}

type SMTPMailer struct {
	Addr string // host:port
	From string
}

func (m *SMTPMailer) Send(e Email) error {
	msg := strings.NewReplacer("\r", "", "\n", "\r\n").Replace(
		fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", m.From, e.To, e.Subject, e.Body))
	return smtp.SendMail(m.Addr, nil, m.From, []string{e.To}, []byte(msg))
}

// LogMailer is the local/dev fallback when no SMTP address is configured.
type LogMailer struct{}

func (LogMailer) Send(e Email) error {
	slog.Info("mail (not sent, no smtp configured)", "to", e.To, "subject", e.Subject)
	return nil
}
