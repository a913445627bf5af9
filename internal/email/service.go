// Package email sends transactional mail over SMTP
package email

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"sentinel/internal/config"
)

// Sender delivers transactional email to users
type Sender interface {
	// SendVerificationEmail sends the address confirmation link for a
	// freshly registered or re-requested verification token
	SendVerificationEmail(to, name, token string) error
}

// Service sends email through an SMTP relay
type Service struct {
	config *config.EmailConfig
	dialer *gomail.Dialer
}

// NewService creates a new email service. When SMTP is not configured the
// service logs messages instead of sending them, so local development
// works without a relay.
func NewService(cfg *config.EmailConfig) *Service {
	s := &Service{config: cfg}
	if cfg.SMTPHost != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// SendVerificationEmail sends the address confirmation link
func (s *Service) SendVerificationEmail(to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.config.AppURL, token)

	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="%s">Verify email</a></p>
<p>The link expires in 24 hours. If you did not create this account you can ignore this message.</p>`, name, verifyURL)

	return s.send(to, "Verify your email address", body)
}

func (s *Service) send(to, subject, body string) error {
	if s.dialer == nil {
		log.Printf("SMTP not configured, skipping email to %s: %s", to, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}
