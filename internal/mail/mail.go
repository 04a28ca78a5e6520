// Package mail delivers transactional email over SMTP. The only message the
// system sends today is the password-reset mail consumed from the work queue.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"sprout/internal/log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender submits mail to a relay with optional PLAIN auth.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{msg.To}, encode(s.from, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func encode(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them. Used when
// no SMTP host is configured, so development setups keep the full reset flow
// minus the inbox.
type LogSender struct {
	logger *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{logger: logger.WithComponent(log.ComponentMail)}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivery skipped, no SMTP host configured",
		log.FieldOperation, log.OpSend,
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

// PasswordReset renders the reset mail sent when a user requests a password
// reset. The link expires one hour after the token was issued.
func PasswordReset(to, resetURL string) Message {
	body := fmt.Sprintf(`Hello %s,

You requested a password reset for your Sprout Budget Tracker account.

Click the link below to reset your password:
%s

This link will expire in 1 hour for security reasons.

If you didn't request this password reset, please ignore this email.

Best regards,
The Sprout Team

--
This is an automated message. Please do not reply to this email.`, to, resetURL)

	return Message{
		To:      to,
		Subject: "Sprout Budget Tracker - Password Reset",
		Body:    body,
	}
}
