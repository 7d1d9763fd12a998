// Package email delivers transactional mail: confirmation codes during
// registration and password reset links.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

var codeTemplate = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Your confirmation code</h2>
  <p>Enter this code to continue setting up your account:</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
  <p>The code expires in {{.TTLMinutes}} minutes. If you did not request it, ignore this message.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Password reset</h2>
  <p>Someone requested a password reset for your account. If that was you, follow the link below:</p>
  <p><a href="{{.Link}}">Reset your password</a></p>
  <p>The link expires in {{.TTLMinutes}} minutes. If you did not request it, ignore this message.</p>
</body>
</html>`))

// RenderConfirmationCode produces the HTML body of a confirmation code email.
func RenderConfirmationCode(code string, ttlMinutes int) (string, error) {
	var buf bytes.Buffer
	err := codeTemplate.Execute(&buf, struct {
		Code       string
		TTLMinutes int
	}{code, ttlMinutes})
	if err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	return buf.String(), nil
}

// RenderPasswordReset produces the HTML body of a password reset email.
func RenderPasswordReset(link string, ttlMinutes int) (string, error) {
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, struct {
		Link       string
		TTLMinutes int
	}{link, ttlMinutes})
	if err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

// SMTPSender sends mail through a plain SMTP relay with optional AUTH.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used in
// development where no SMTP relay is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, htmlBody string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("email delivery skipped (log sender)")
	return nil
}
