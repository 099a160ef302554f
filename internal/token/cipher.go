package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrDecryption is returned when a ciphertext was not produced under the
// cipher's key or has been tampered with or truncated.
var ErrDecryption = errors.New("decryption failed")

// IdentityCipher encrypts the account identity (email) so it can be embedded
// in a token claim without exposing the raw address. Rotating the key
// invalidates every outstanding token at once.
type IdentityCipher struct {
	gcm cipher.AEAD
}

// NewIdentityCipher builds a cipher from a hex-encoded 32-byte AES key.
func NewIdentityCipher(hexKey string) (*IdentityCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &IdentityCipher{gcm: gcm}, nil
}

// Encrypt seals the identity with AES-256-GCM. Output is URL-safe base64 so
// it can sit inside a JWT claim unescaped.
func (c *IdentityCipher) Encrypt(identity string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nonce, nonce, []byte(identity), nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt is the inverse of Encrypt. Any tampering, truncation, or key
// mismatch yields ErrDecryption.
func (c *IdentityCipher) Decrypt(encoded string) (string, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryption
	}

	nonceSize := c.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryption
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
