package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dosada05/bracket-sync/models"
)

// Notifier is told about every structural action after it happened.
type Notifier interface {
	NotifyStructural(ctx context.Context, grade models.Grade, entry models.AuditEntry)
}

type noopNotifier struct{}

func (noopNotifier) NotifyStructural(context.Context, models.Grade, models.AuditEntry) {}

type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Pass       string
	From       string
	Recipients []string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && len(c.Recipients) > 0
}

// SMTPNotifier отправляет короткое HTML-письмо о структурном действии.
type SMTPNotifier struct {
	cfg    SMTPConfig
	body   *template.Template
	send   func(to []string, msg []byte) error
	logger *slog.Logger
}

const structuralTemplate = `<p><b>{{.Action}}</b> on grade {{.Grade}}</p>
<p>by {{.Admin}} at {{.Time}}</p>
{{if .Details}}<ul>{{range $k, $v := .Details}}<li>{{$k}}: {{$v}}</li>{{end}}</ul>{{end}}`

func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) Notifier {
	if !cfg.Enabled() {
		return noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &SMTPNotifier{
		cfg:    cfg,
		body:   template.Must(template.New("structural").Parse(structuralTemplate)),
		logger: logger.With(slog.String("component", "notifier")),
	}
	n.send = n.sendMail
	return n
}

// NotifyStructural never fails the caller; delivery problems are only logged.
func (n *SMTPNotifier) NotifyStructural(_ context.Context, grade models.Grade, entry models.AuditEntry) {
	msg, err := n.compose(grade, entry)
	if err != nil {
		n.logger.Error("failed to render notification", slog.Any("error", err))
		return
	}
	if err := n.send(n.cfg.Recipients, msg); err != nil {
		n.logger.Warn("failed to send structural notification",
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
	}
}

func (n *SMTPNotifier) compose(grade models.Grade, entry models.AuditEntry) ([]byte, error) {
	var body bytes.Buffer
	err := n.body.Execute(&body, struct {
		Action  string
		Grade   models.Grade
		Admin   string
		Time    string
		Details map[string]any
	}{
		Action:  entry.Action,
		Grade:   grade,
		Admin:   entry.Admin,
		Time:    entry.Timestamp.Format(time.RFC3339),
		Details: entry.Details,
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	subject := fmt.Sprintf("[Grade %s] %s", grade, entry.Action)
	msg := "To: " + strings.Join(n.cfg.Recipients, ", ") + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body.String() + "\r\n"
	return []byte(msg), nil
}

func (n *SMTPNotifier) sendMail(to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	tlsconfig := &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}

	var client *smtp.Client
	if n.cfg.Port == 465 {
		// Прямое TLS-соединение
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("tls dial: %w", err)
		}
		client, err = smtp.NewClient(conn, n.cfg.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		// STARTTLS
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("starttls: %w", err)
		}
	}
	defer client.Quit()

	if n.cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return w.Close()
}
