package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMTPMailer(t *testing.T) {
	t.Run("unconfigured mailer skips delivery without error", func(t *testing.T) {
		m := NewSMTPMailer(SMTPConfig{})

		err := m.SendVerificationCode(context.Background(), "user@example.com", "123456")
		assert.NoError(t, err)
	})

	t.Run("unreachable host returns an error", func(t *testing.T) {
		m := NewSMTPMailer(SMTPConfig{
			Host: "127.0.0.1",
			Port: 1,
			From: "noreply@example.com",
		})

		err := m.SendVerificationCode(context.Background(), "user@example.com", "123456")
		assert.Error(t, err)
	})

	t.Run("cancelled context aborts delivery", func(t *testing.T) {
		m := NewSMTPMailer(SMTPConfig{
			Host: "192.0.2.1",
			Port: 25,
			From: "noreply@example.com",
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := m.SendVerificationCode(ctx, "user@example.com", "123456")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
