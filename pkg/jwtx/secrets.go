package jwtx

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/haulage/pkg/cryptox"
)

// MinSecretBytes is the shortest HMAC secret accepted for either token kind.
const MinSecretBytes = 32

var (
	ErrSecretMissing  = errors.New("jwtx: signing secret not configured")
	ErrSecretTooShort = errors.New("jwtx: signing secret too short")
	ErrSecretReused   = errors.New("jwtx: access and refresh secrets must differ")
)

// Secrets holds the two HMAC secrets. Access and refresh tokens are signed
// with different material so neither can be presented as the other.
type Secrets struct {
	Access  []byte
	Refresh []byte

	// Ephemeral is true when the secrets were generated at startup and will
	// be gone after a restart.
	Ephemeral bool
}

// NewSecrets validates externally configured secrets.
func NewSecrets(access, refresh string) (Secrets, error) {
	if access == "" || refresh == "" {
		return Secrets{}, ErrSecretMissing
	}
	if len(access) < MinSecretBytes || len(refresh) < MinSecretBytes {
		return Secrets{}, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretBytes)
	}
	if subtle.ConstantTimeCompare([]byte(access), []byte(refresh)) == 1 {
		return Secrets{}, ErrSecretReused
	}

	return Secrets{Access: []byte(access), Refresh: []byte(refresh)}, nil
}

// NewEphemeralSecrets generates two random secrets that only live in memory.
func NewEphemeralSecrets() (Secrets, error) {
	access, err := cryptox.RandomBytes(cryptox.SecretBytes)
	if err != nil {
		return Secrets{}, fmt.Errorf("jwtx: generate access secret: %w", err)
	}
	refresh, err := cryptox.RandomBytes(cryptox.SecretBytes)
	if err != nil {
		return Secrets{}, fmt.Errorf("jwtx: generate refresh secret: %w", err)
	}

	return Secrets{Access: access, Refresh: refresh, Ephemeral: true}, nil
}
