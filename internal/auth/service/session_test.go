package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/aussiebroadwan/haulage/internal/auth/notify"
	"github.com/aussiebroadwan/haulage/pkg/jwtx"
)

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(t)

	reg := h.register(t, "a@x.com")
	require.NotEmpty(t, reg.Tokens.AccessToken)
	require.NotEmpty(t, reg.Tokens.RefreshToken)
	require.Equal(t, int64(900), reg.Tokens.ExpiresIn)
	require.Equal(t, domain.RoleBuyer, reg.Account.Role)

	sess, err := h.login("a@x.com", testPassword)
	require.NoError(t, err)
	require.NotEqual(t, reg.Tokens.AccessToken, sess.Tokens.AccessToken)
	require.NotEmpty(t, sess.Account.Permissions)
	require.NotContains(t, sess.Account.Permissions, domain.WildcardPermission)

	claims, err := h.svc.Authenticate(context.Background(), sess.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.Account.ID, claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.ElementsMatch(t, sess.Account.Permissions, claims.Permissions)

	has, err := h.client.HasRefresh(context.Background(), reg.Account.ID, sess.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, has, "login stores its refresh token")
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "taken@x.com")

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"existing email", RegisterInput{Email: "TAKEN@x.com", Password: testPassword}, ErrEmailTaken},
		{"weak password", RegisterInput{Email: "new@x.com", Password: "password"}, ErrWeakPassword},
		{"bad email", RegisterInput{Email: "not-an-email", Password: testPassword}, ErrInvalidRequest},
		{"unknown role", RegisterInput{Email: "r@x.com", Password: testPassword, Role: "pilot"}, ErrInvalidRequest},
		{"privileged role", RegisterInput{Email: "r@x.com", Password: testPassword, Role: "admin"}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Register(ctx, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")

	_, wrongPw := h.login("a@x.com", "Wr0ng!Pass")
	_, unknown := h.login("ghost@x.com", testPassword)

	require.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	require.Equal(t, VisibleKind(wrongPw), VisibleKind(unknown))

	require.Equal(t, KindWrongPassword, RealKind(wrongPw))
	require.Equal(t, KindUnknownAccount, RealKind(unknown))
}

func TestLoginPasswordlessAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CompleteFederatedLogin(context.Background(), domain.ExternalIdentity{
		Provider: "google", Subject: "g-1", Email: "fed@x.com", EmailVerified: true,
	})
	require.NoError(t, err)

	_, err = h.login("fed@x.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, KindPasswordNotSet, RealKind(err))
}

func TestLockout(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")

	for i := range 5 {
		_, err := h.login("a@x.com", "Wr0ng!Pass")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	require.Contains(t, h.alerts.kinds(), notify.AlertLockoutThreshold)

	_, err := h.login("a@x.com", testPassword)
	require.ErrorIs(t, err, ErrLocked, "lockout is checked before the password")
	require.Contains(t, h.alerts.kinds(), notify.AlertLockoutHit)

	h.clock.Advance(16 * time.Minute)
	_, err = h.login("a@x.com", testPassword)
	require.NoError(t, err, "lockout is soft and expires with the window")
}

func TestLockoutCoversUnknownIdentifiers(t *testing.T) {
	h := newHarness(t)
	for range 5 {
		_, err := h.login("ghost@x.com", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := h.login("  GHOST@x.com ", "whatever")
	require.ErrorIs(t, err, ErrLocked)
}

func TestRefreshRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.register(t, "a@x.com")

	next, err := h.svc.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.Tokens.RefreshToken, next.Tokens.RefreshToken)
	require.NotEqual(t, first.Tokens.AccessToken, next.Tokens.AccessToken)
	require.Equal(t, first.Account.ID, next.Account.ID)

	_, err = h.svc.Refresh(ctx, first.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials, "a rotated token is dead")
	require.Equal(t, KindSessionNotFound, RealKind(err))
	require.Contains(t, h.alerts.kinds(), notify.AlertRefreshReuse)

	_, err = h.svc.Refresh(ctx, next.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	h := newHarness(t)
	sess := h.register(t, "a@x.com")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Refresh(context.Background(), sess.Tokens.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestRefreshTokenErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.register(t, "a@x.com")

	_, err := h.svc.Refresh(ctx, sess.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrTokenMalformed, "access tokens cannot refresh")

	_, err = h.svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrTokenMalformed)

	h.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Minute)
	_, err = h.svc.Refresh(ctx, sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshFailsClosedWhenStoreIsDown(t *testing.T) {
	h := newHarness(t)
	sess := h.register(t, "a@x.com")

	require.NoError(t, h.backend.Close())
	_, err := h.svc.Refresh(context.Background(), sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInternal)
	require.Equal(t, KindStoreUnavailable, RealKind(err))
}

func TestAuthenticateFailsOpenWhenStoreIsDown(t *testing.T) {
	h := newHarness(t)
	sess := h.register(t, "a@x.com")

	require.NoError(t, h.backend.Close())
	_, err := h.svc.Authenticate(context.Background(), sess.Tokens.AccessToken)
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.register(t, "a@x.com")

	me, err := h.svc.Me(ctx, sess.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, sess.Account, me)

	_, err = h.svc.Me(ctx, sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenMalformed, "refresh tokens are not access tokens")

	h.clock.Advance(16 * time.Minute)
	_, err = h.svc.Me(ctx, sess.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestLogoutEverywhere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com")

	phone, err := h.login("a@x.com", testPassword)
	require.NoError(t, err)
	laptop, err := h.login("a@x.com", testPassword)
	require.NoError(t, err)
	subject := phone.Account.ID

	require.NoError(t, h.svc.Logout(ctx, phone.Tokens.AccessToken, phone.Tokens.RefreshToken))

	for _, tok := range []string{phone.Tokens.RefreshToken, laptop.Tokens.RefreshToken} {
		has, err := h.client.HasRefresh(ctx, subject, tok)
		require.NoError(t, err)
		require.False(t, has)
	}

	_, err = h.svc.Me(ctx, phone.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrInvalidCredentials, "logged out access token is blacklisted")
	require.Equal(t, KindTokenRevoked, RealKind(err))

	_, err = h.svc.Refresh(ctx, laptop.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The blacklist entry lives exactly as long as the token would have.
	require.True(t, h.client.IsBlacklisted(ctx, phone.Tokens.AccessToken))
	h.clock.Advance(15*time.Minute + time.Second)
	require.False(t, h.client.IsBlacklisted(ctx, phone.Tokens.AccessToken))
}

func TestLogoutRequiresValidAccessToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.register(t, "a@x.com")

	err := h.svc.Logout(ctx, "garbage", sess.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenMalformed)

	has, err := h.client.HasRefresh(ctx, sess.Account.ID, sess.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, has)
}

func TestForgotPasswordIsUniform(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")

	require.Empty(t, h.resetTokenFor(t, "unknown@x.com"))
	token := h.resetTokenFor(t, "a@x.com")
	require.NotEmpty(t, token)

	notices := h.notifier.all()
	require.Len(t, notices, 1)
	require.Equal(t, "a@x.com", notices[0].Email)
	require.Equal(t, h.clock.Now().Add(time.Hour), notices[0].ExpiresAt)

	require.NoError(t, h.svc.CheckResetToken(context.Background(), token))
}

func TestResetPasswordExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	old := h.register(t, "a@x.com")
	token := h.resetTokenFor(t, "a@x.com")

	const newPassword = "N3w!Passw0rd"
	require.NoError(t, h.svc.ResetPassword(ctx, token, newPassword))

	err := h.svc.ResetPassword(ctx, token, "An0ther!Pass")
	require.ErrorIs(t, err, ErrInvalidResetToken)
	require.ErrorIs(t, h.svc.CheckResetToken(ctx, token), ErrInvalidResetToken)

	_, err = h.svc.Refresh(ctx, old.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials, "reset revokes existing sessions")

	_, err = h.login("a@x.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.login("a@x.com", newPassword)
	require.NoError(t, err)
}

func TestResetPasswordConcurrentRedemption(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")
	token := h.resetTokenFor(t, "a@x.com")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.svc.ResetPassword(context.Background(), token, "N3w!Passw0rd"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestResetPasswordWeakKeepsToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com")
	token := h.resetTokenFor(t, "a@x.com")

	require.ErrorIs(t, h.svc.ResetPassword(ctx, token, "weak"), ErrWeakPassword)
	require.NoError(t, h.svc.CheckResetToken(ctx, token))
}

func TestResetTokenExpires(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")
	token := h.resetTokenFor(t, "a@x.com")

	h.clock.Advance(time.Hour)
	err := h.svc.ResetPassword(context.Background(), token, "N3w!Passw0rd")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetRestoreKeepsOriginalDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com")
	token := h.resetTokenFor(t, "a@x.com")

	h.clock.Advance(50 * time.Minute)
	require.NoError(t, h.store.Close())
	err := h.svc.ResetPassword(ctx, token, "N3w!Passw0rd")
	require.ErrorIs(t, err, ErrInternal)
	require.Equal(t, KindDirectoryUnavailable, RealKind(err))
	require.NoError(t, h.svc.CheckResetToken(ctx, token), "a failed update puts the token back")

	h.clock.Advance(11 * time.Minute)
	require.ErrorIs(t, h.svc.CheckResetToken(ctx, token), ErrInvalidResetToken,
		"the restored token still expires an hour after issue")
}

func TestResetRestoreSkipsExpiredTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := "expired-ticket"
	ticket := domain.ResetTicket{Subject: "01J00000000000000000000000", ExpiresAt: h.clock.Now().Add(-time.Second)}

	h.svc.restoreResetToken(ctx, token, ticket)
	require.ErrorIs(t, h.svc.CheckResetToken(ctx, token), ErrInvalidResetToken)
}

func TestLoginVerifyTimeoutCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com")
	h.svc.VerifyTimeout = time.Nanosecond

	_, err := h.login("a@x.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, KindVerifyTimeout, RealKind(err))

	n, err := h.svc.Guard.CountFailures(ctx, "a@x.com", 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDirectoryOutageIsInternal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.register(t, "a@x.com")
	require.NoError(t, h.store.Close())

	_, err := h.svc.Refresh(ctx, sess.Tokens.RefreshToken)
	require.Equal(t, KindInternal, VisibleKind(err))
	require.Equal(t, KindDirectoryUnavailable, RealKind(err))

	_, err = h.svc.Me(ctx, sess.Tokens.AccessToken)
	require.Equal(t, KindInternal, VisibleKind(err))
	require.Equal(t, KindDirectoryUnavailable, RealKind(err))
}

func TestCompleteFederatedLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("creates a password-less buyer", func(t *testing.T) {
		sess, err := h.svc.CompleteFederatedLogin(ctx, domain.ExternalIdentity{
			Provider: "Google", Subject: "g-1", Email: "New@x.com", EmailVerified: true, FirstName: "Lee",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleBuyer, sess.Account.Role)
		require.Equal(t, "new@x.com", sess.Account.Email)

		again, err := h.svc.CompleteFederatedLogin(ctx, domain.ExternalIdentity{Provider: "google", Subject: "g-1"})
		require.NoError(t, err)
		require.Equal(t, sess.Account.ID, again.Account.ID, "linked identity resolves without email")
	})

	t.Run("links a verified email to an existing account", func(t *testing.T) {
		reg := h.register(t, "owner@x.com")
		sess, err := h.svc.CompleteFederatedLogin(ctx, domain.ExternalIdentity{
			Provider: "google", Subject: "g-2", Email: "owner@x.com", EmailVerified: true,
		})
		require.NoError(t, err)
		require.Equal(t, reg.Account.ID, sess.Account.ID)

		_, err = h.login("owner@x.com", testPassword)
		require.NoError(t, err, "password login keeps working")
	})

	t.Run("unverified email cannot take over an account", func(t *testing.T) {
		h.register(t, "victim@x.com")
		_, err := h.svc.CompleteFederatedLogin(ctx, domain.ExternalIdentity{
			Provider: "google", Subject: "g-3", Email: "victim@x.com", EmailVerified: false,
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("requires provider and subject", func(t *testing.T) {
		_, err := h.svc.CompleteFederatedLogin(ctx, domain.ExternalIdentity{Email: "x@x.com"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestRevokeSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.register(t, "a@x.com")
	_, err := h.login("a@x.com", testPassword)
	require.NoError(t, err)

	n, err := h.svc.RevokeSessions(ctx, sess.Account.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = h.svc.RevokeSessions(ctx, sess.Account.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}
