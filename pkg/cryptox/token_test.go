package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)
	require.Len(t, token, 43)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "tokens must be url safe")
	require.Len(t, raw, ResetTokenBytes)

	seen := map[string]bool{token: true}
	for range 100 {
		next, err := GenerateToken(ResetTokenBytes)
		require.NoError(t, err)
		require.False(t, seen[next], "duplicate token generated")
		seen[next] = true
	}
}

func TestRandomBytesRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, -1} {
		b, err := RandomBytes(size)
		require.Error(t, err)
		require.Nil(t, b)

		s, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, s)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("reset-token-1")
	require.Equal(t, fp, FingerprintToken("reset-token-1"), "fingerprint should be deterministic")
	require.NotEqual(t, fp, FingerprintToken("reset-token-2"))
	require.Len(t, fp, 43, "SHA-256 base64url should be 43 chars")
	require.NotContains(t, fp, "reset-token-1")
}

func TestShortFingerprint(t *testing.T) {
	fp := ShortFingerprint("some-token")
	require.Len(t, fp, shortFingerprintLen)
	require.Equal(t, FingerprintToken("some-token")[:shortFingerprintLen], fp)
}
