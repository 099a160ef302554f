package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitcoach/api-server-go/internal/config"
)

var (
	// ErrTokenExpired means the token was valid once; the caller should log
	// in again.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid means the token was never valid: bad signature,
	// malformed structure, or a subject claim this process cannot decrypt.
	ErrTokenInvalid = errors.New("invalid token")
)

// Issuer creates and validates signed bearer tokens. The subject claim is the
// identity encrypted with the IdentityCipher, never the raw email.
type Issuer struct {
	signingKey []byte
	cipher     *IdentityCipher
	defaultTTL time.Duration
}

// NewIssuer builds an Issuer. A defaultTTL of 0 selects the long-lived
// default of 365 days.
func NewIssuer(signingKey string, cipher *IdentityCipher, defaultTTL time.Duration) *Issuer {
	if defaultTTL <= 0 {
		defaultTTL = config.DefaultTokenTTL
	}
	return &Issuer{
		signingKey: []byte(signingKey),
		cipher:     cipher,
		defaultTTL: defaultTTL,
	}
}

// Issue signs a token for the identity expiring after ttl. A nil ttl uses the
// issuer's default.
func (i *Issuer) Issue(identity string, ttl *time.Duration) (string, error) {
	effective := i.defaultTTL
	if ttl != nil {
		effective = *ttl
	}

	encrypted, err := i.cipher.Encrypt(identity)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   encrypted,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(effective)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
}

// Validate verifies signature and expiry and returns the decrypted identity.
// Expired tokens yield ErrTokenExpired; everything else wrong yields
// ErrTokenInvalid.
func (i *Issuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	identity, err := i.cipher.Decrypt(claims.Subject)
	if err != nil {
		return "", ErrTokenInvalid
	}

	return identity, nil
}
