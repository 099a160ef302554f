package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog/log"
)

// Mailer delivers verification codes out of band. Delivery failure is never
// fatal to registration; the code stays valid and the resend endpoint covers
// the gap.
type Mailer interface {
	SendVerificationCode(ctx context.Context, toEmail, code string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	if m.cfg.Host == "" {
		log.Warn().Str("to", toEmail).Msg("mailer not configured, skipping verification email")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your Verification Code\r\n\r\nYour verification code is: %s\r\n",
		m.cfg.From, toEmail, code,
	))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.cfg.From, []string{toEmail}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send verification email: %w", err)
		}
	}

	log.Info().Str("to", toEmail).Msg("verification email sent")
	return nil
}
