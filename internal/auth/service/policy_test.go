package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPasswordPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"strong", "Str0ng!Pass", true},
		{"unicode letters", "Pässw0rd!", true},
		{"too short", "S0!a", false},
		{"no upper", "str0ng!pass", false},
		{"no lower", "STR0NG!PASS", false},
		{"no digit", "Strong!Pass", false},
		{"no symbol", "Str0ngPass", false},
		{"too long", "A1!" + strings.Repeat("a", 126), false},
		{"max length", "A1!" + strings.Repeat("a", 125), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordPolicy(tt.password)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
