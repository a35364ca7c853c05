package notify

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
)

// Notifier delivers a transactional email. Implementations must be safe for
// concurrent use by worker goroutines.
type Notifier interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

type SMTPNotifier struct {
	addr     string
	from     string
	username string
	password string
}

func NewSMTPNotifier(addr, from, username, password string) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     addr,
		from:     from,
		username: username,
		password: password,
	}
}

func (n *SMTPNotifier) Send(_ context.Context, to string, subject string, body string) error {
	var msg strings.Builder
	msg.WriteString("From: " + n.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if n.username != "" {
		host := n.addr
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", n.username, n.password, host)
	}

	if err := smtp.SendMail(n.addr, auth, n.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogNotifier stands in when SMTP is not configured (local development).
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, to string, subject string, _ string) error {
	log.Printf("notify: would send %q to %s", subject, to)
	return nil
}
