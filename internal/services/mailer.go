// internal/services/mailer.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/servicemart-backend/internal/config"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a single email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.cfg.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("SMTP not configured, email logged only")
		return nil
	}

	body, err := m.compose(msg)
	if err != nil {
		return fmt.Errorf("failed to compose email: %w", err)
	}

	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", msg.To, err)
	}
	return nil
}

// compose renders a multipart/alternative message with text and HTML parts.
func (m *SMTPMailer) compose(msg EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", writer.Boundary())

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=\"UTF-8\"", msg.Text},
		{"text/html; charset=\"UTF-8\"", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
