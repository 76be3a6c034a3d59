package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Role
		err  bool
	}{
		{"buyer", domain.RoleBuyer, false},
		{" Carrier ", domain.RoleCarrier, false},
		{"", domain.DefaultRole, false},
		{"superuser", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseRole(tt.in)
			if tt.err {
				require.ErrorIs(t, err, domain.ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRolePermissions(t *testing.T) {
	require.Equal(t, []string{domain.WildcardPermission}, domain.RoleAdmin.Permissions())

	buyer := domain.RoleBuyer.Permissions()
	require.NotEmpty(t, buyer)
	require.NotContains(t, buyer, domain.WildcardPermission)

	// Callers get a copy
	buyer[0] = "mutated"
	require.NotEqual(t, "mutated", domain.RoleBuyer.Permissions()[0])

	require.Empty(t, domain.Role("ghost").Permissions())
}

func TestAccountPublic(t *testing.T) {
	hash := "$argon2id$..."
	a := &domain.Account{ID: "01J", Email: "a@x.com", PasswordHash: &hash, Role: domain.RoleSeller}

	require.True(t, a.HasPassword())
	pub := a.Public()
	require.Equal(t, "a@x.com", pub.Email)
	require.Equal(t, domain.RoleSeller.Permissions(), pub.Permissions)

	a.PasswordHash = nil
	require.False(t, a.HasPassword())
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "a@x.com", domain.NormalizeEmail("  A@X.com "))
}
