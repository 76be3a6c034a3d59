package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"900", 900 * time.Second},
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{" 1d ", 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := jwtx.ParseTTL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseTTL_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-5m", "d", "10w"} {
		t.Run(in, func(t *testing.T) {
			_, err := jwtx.ParseTTL(in)
			require.ErrorIs(t, err, jwtx.ErrInvalidTTL)
		})
	}
}
