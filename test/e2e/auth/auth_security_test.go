package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/haulage/pkg/authsdk"
)

// TestLockout verifies five wrong passwords within the window lock the
// email, and the correct password is refused while locked.
func TestLockout(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	registerBuyer(t, client, "a@x.com")

	for i := range 5 {
		_, err := client.Login(ctx, "a@x.com", "Wr0ng!Pass")
		assertAPIError(t, err, authsdk.ErrInvalidCredentials, "wrong password")
		t.Logf("failed attempt %d recorded", i+1)
	}

	_, err := client.Login(ctx, "a@x.com", testPassword)
	assertAPIError(t, err, authsdk.ErrAccountLocked, "correct password while locked")
}

// TestLoginDoesNotRevealAccounts verifies an unknown email and a wrong
// password produce the same error.
func TestLoginDoesNotRevealAccounts(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	registerBuyer(t, client, "a@x.com")

	_, wrongPassword := client.Login(ctx, "a@x.com", "Wr0ng!Pass")
	_, unknownEmail := client.Login(ctx, "nobody@x.com", "Wr0ng!Pass")
	require.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

// TestForgotPasswordIsUniform verifies known and unknown emails get the same answer.
func TestForgotPasswordIsUniform(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	registerBuyer(t, client, "a@x.com")

	unknown, err := client.ForgotPassword(ctx, "unknown@x.com")
	require.NoError(t, err)
	known, err := client.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, unknown, known)

	err = client.ResetPassword(ctx, "not-a-reset-token", "N3w!Passw0rd")
	assertAPIError(t, err, authsdk.ErrInvalidResetToken, "guessed reset token")
}

// TestTamperedTokensAreRejected verifies a token signed for one purpose is
// not accepted for another.
func TestTamperedTokensAreRejected(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	reg := registerBuyer(t, client, "a@x.com")

	_, err := client.Refresh(ctx, reg.AccessToken)
	assertAPIError(t, err, authsdk.ErrTokenMalformed, "access token used as refresh token")

	_, err = client.Me(ctx, reg.RefreshToken)
	assertAPIError(t, err, authsdk.ErrInvalidToken, "refresh token used as bearer")

	_, err = client.Register(ctx, authsdk.RegisterRequest{Email: "b@x.com", Password: testPassword, Role: "admin"})
	assertAPIError(t, err, authsdk.ErrInvalidRequest, "self-assigned admin role")
}
