package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	cipher, err := NewIdentityCipher(testKey)
	require.NoError(t, err)
	return NewIssuer("test-signing-key", cipher, 0)
}

func TestIssuerIssueValidate(t *testing.T) {
	issuer := newTestIssuer(t)

	t.Run("validate returns identity before expiry", func(t *testing.T) {
		tok, err := issuer.Issue("a@x.com", nil)
		require.NoError(t, err)

		identity, err := issuer.Validate(tok)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", identity)
	})

	t.Run("explicit ttl is honored", func(t *testing.T) {
		ttl := time.Hour
		tok, err := issuer.Issue("a@x.com", &ttl)
		require.NoError(t, err)

		identity, err := issuer.Validate(tok)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", identity)
	})

	t.Run("zero ttl token is immediately expired", func(t *testing.T) {
		ttl := time.Duration(0)
		tok, err := issuer.Issue("a@x.com", &ttl)
		require.NoError(t, err)

		_, err = issuer.Validate(tok)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("subject claim does not contain the raw identity", func(t *testing.T) {
		tok, err := issuer.Issue("a@x.com", nil)
		require.NoError(t, err)
		assert.NotContains(t, tok, "a@x.com")
	})
}

func TestIssuerValidateFailures(t *testing.T) {
	issuer := newTestIssuer(t)

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := issuer.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := issuer.Validate("")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		tok, err := issuer.Issue("a@x.com", nil)
		require.NoError(t, err)

		parts := strings.Split(tok, ".")
		require.Len(t, parts, 3)
		payload := []byte(parts[1])
		if payload[0] == 'A' {
			payload[0] = 'B'
		} else {
			payload[0] = 'A'
		}
		tampered := parts[0] + "." + string(payload) + "." + parts[2]

		_, err = issuer.Validate(tampered)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		cipher, err := NewIdentityCipher(testKey)
		require.NoError(t, err)
		other := NewIssuer("other-signing-key", cipher, 0)

		tok, err := other.Issue("a@x.com", nil)
		require.NoError(t, err)

		_, err = issuer.Validate(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("rejects token whose subject was encrypted under another key", func(t *testing.T) {
		otherCipher, err := NewIdentityCipher(strings.Repeat("fe", 32))
		require.NoError(t, err)
		crossed := NewIssuer("test-signing-key", otherCipher, 0)

		tok, err := crossed.Issue("a@x.com", nil)
		require.NoError(t, err)

		// Signature verifies but the subject cannot be decrypted.
		_, err = issuer.Validate(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
