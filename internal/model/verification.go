package model

import (
	"time"
)

type VerificationCode struct {
	ID         string     `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Code       string     `db:"code" json:"-"`
	IssuedAt   time.Time  `db:"issued_at" json:"issuedAt"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumedAt,omitempty"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (c *VerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

type CreateVerificationCodeParams struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
