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
)

// Mailer sends transactional email.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, to, username string) error
	SendRegistrationStatusEmail(ctx context.Context, to string, data RegistrationStatusEmail) error
}

type RegistrationStatusEmail struct {
	TournamentName string
	Status         string
	Note           string
	Link           string
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Pass      string
	From      string
	PublicURL string
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "welcome"}}<p>Hi {{.Username}},</p>
<p>Welcome to the arena. Your account is ready.</p>
{{if .Link}}<p><a href="{{.Link}}">Open your profile</a></p>{{end}}{{end}}
{{define "registration_status"}}<p>Your registration for <b>{{.TournamentName}}</b> is now <b>{{.Status}}</b>.</p>
{{if .Note}}<p>Note from the organizer: {{.Note}}</p>{{end}}
{{if .Link}}<p><a href="{{.Link}}">View tournament</a></p>{{end}}{{end}}
`))

type EmailService struct {
	cfg SMTPConfig
}

func NewEmailService(cfg SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, username string) error {
	link := ""
	if s.cfg.PublicURL != "" {
		link = s.cfg.PublicURL + "/profile"
	}
	body, err := renderEmail("welcome", struct{ Username, Link string }{username, link})
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, []string{to}, "Welcome to Esports Arena", body)
}

func (s *EmailService) SendRegistrationStatusEmail(ctx context.Context, to string, data RegistrationStatusEmail) error {
	body, err := renderEmail("registration_status", data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Tournament '%s': registration %s", data.TournamentName, data.Status)
	return s.SendEmail(ctx, []string{to}, subject, body)
}

func renderEmail(name string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return body.String(), nil
}

func (s *EmailService) SendEmail(ctx context.Context, to []string, subject string, body string) error {
	if len(to) == 0 {
		return nil
	}
	msg := []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + s.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	var client *smtp.Client
	if s.cfg.Port == 465 {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Quit()

	if s.cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close DATA: %w", err)
	}
	return nil
}

type noopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer returns a Mailer that only logs. Used when SMTP is not configured.
func NewNoopMailer(logger *slog.Logger) Mailer {
	return noopMailer{logger: logger}
}

func (m noopMailer) SendWelcomeEmail(ctx context.Context, to, _ string) error {
	m.logger.DebugContext(ctx, "smtp disabled, welcome email skipped", slog.String("to", to))
	return nil
}

func (m noopMailer) SendRegistrationStatusEmail(ctx context.Context, to string, data RegistrationStatusEmail) error {
	m.logger.DebugContext(ctx, "smtp disabled, registration email skipped",
		slog.String("to", to), slog.String("status", data.Status))
	return nil
}
