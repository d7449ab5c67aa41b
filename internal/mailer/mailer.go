package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"

	"taskhub/internal/config"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New picks a transport from configuration: SMTP when a host is set, the
// Resend API when a key is set, otherwise mail is only logged.
func New(cfg config.MailConfig) Sender {
	switch {
	case cfg.SMTPHost != "":
		return &SMTP{cfg: cfg}
	case cfg.ResendAPIKey != "":
		return NewResend(cfg.ResendAPIKey, cfg.From)
	default:
		log.Println("[warn] no mail transport configured, emails are written to the log")
		return Log{}
	}
}

// SMTP sends through a plain SMTP relay.
type SMTP struct {
	cfg config.MailConfig
}

func (s *SMTP) Send(_ context.Context, to, subject, html string) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	msg := "From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		html

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.SMTPUser, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

const resendEndpoint = "https://api.resend.com/emails"

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Resend sends through the Resend HTTP API.
type Resend struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{APIKey: apiKey, From: from, Endpoint: resendEndpoint, Client: http.DefaultClient}
}

func (s *Resend) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(resendRequest{
		From:    s.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

// Log writes emails to the process log instead of sending them.
type Log struct{}

func (Log) Send(_ context.Context, to, subject, html string) error {
	log.Printf("[info] mail to=%s subject=%q\n%s", to, subject, html)
	return nil
}

// ResetCodeEmail renders the password reset message.
func ResetCodeEmail(code string, validMinutes int) (subject, html string) {
	subject = "Your password reset code"
	html = fmt.Sprintf(
		`<p>Use the code below to reset your password:</p>`+
			`<p style="font-size:24px;letter-spacing:4px"><b>%s</b></p>`+
			`<p>This code expires in %d minutes. If you did not ask for it, ignore this email.</p>`,
		code, validMinutes,
	)
	return subject, html
}
