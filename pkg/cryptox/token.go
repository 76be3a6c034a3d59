package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// ResetTokenBytes is the entropy of a password reset token (43 chars encoded).
	ResetTokenBytes = 32

	// SecretBytes is the size of a generated HMAC signing secret.
	SecretBytes = 64

	// shortFingerprintLen is how much of a fingerprint goes into log lines.
	shortFingerprintLen = 12
)

// RandomBytes reads size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cryptox: size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptox: read random bytes: %w", err)
	}
	return buf, nil
}

// GenerateToken returns size random bytes as unpadded base64url, safe to put
// in a link or a JSON body as is.
func GenerateToken(size int) (string, error) {
	buf, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken is the unpadded base64url SHA-256 of token. Stores key
// tokens by fingerprint so a dump of the store yields no usable token.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ShortFingerprint is a prefix of FingerprintToken, enough to correlate log
// lines about the same token without making the log a lookup table.
func ShortFingerprint(token string) string {
	return FingerprintToken(token)[:shortFingerprintLen]
}
