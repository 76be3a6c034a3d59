package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/aussiebroadwan/haulage/internal/auth/notify"
	"github.com/aussiebroadwan/haulage/internal/auth/revocation"
	"github.com/aussiebroadwan/haulage/internal/auth/store"
	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/aussiebroadwan/haulage/pkg/cryptox"
	"github.com/aussiebroadwan/haulage/pkg/idx"
	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

const (
	DefaultResetTTL         = time.Hour
	DefaultDirectoryTimeout = 3 * time.Second
	DefaultVerifyTimeout    = 2 * time.Second

	notifyTimeout = 10 * time.Second
)

// Roles an account may pick for itself at registration.
var registrableRoles = map[domain.Role]bool{
	domain.RoleBuyer:      true,
	domain.RoleSeller:     true,
	domain.RoleCarrier:    true,
	domain.RoleDispatcher: true,
}

// Session is what a successful login, registration or refresh hands back.
type Session struct {
	Tokens  jwtx.TokenPair
	Account domain.PublicIdentity
}

type LoginInput struct {
	Email      string
	Password   string
	SourceAddr string
}

type RegisterInput struct {
	Email      string
	Password   string
	Role       string
	FirstName  string
	LastName   string
	SourceAddr string
}

// SessionService drives the credential lifecycle: login, registration,
// refresh rotation, logout, and password reset. All results are either a
// value or an *Error.
type SessionService struct {
	Store       store.Store
	Credentials *jwtx.Credentials
	Revocation  *revocation.Client
	Guard       *AttemptGuard
	Notifier    notify.Notifier
	Alerts      notify.AlertSink
	Clock       clockx.Clock

	ResetTTL         time.Duration
	DirectoryTimeout time.Duration
	VerifyTimeout    time.Duration

	wg sync.WaitGroup
}

func (s *SessionService) now() time.Time { return clockx.Default(s.Clock).Now() }

func (s *SessionService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return DefaultResetTTL
	}
	return s.ResetTTL
}

func (s *SessionService) directory(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.DirectoryTimeout
	if d <= 0 {
		d = DefaultDirectoryTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (s *SessionService) findByIdentifier(ctx context.Context, identifier string) (domain.Account, error) {
	ctx, cancel := s.directory(ctx)
	defer cancel()
	return s.Store.Accounts().FindByIdentifier(ctx, identifier)
}

func (s *SessionService) findByID(ctx context.Context, id string) (domain.Account, error) {
	ctx, cancel := s.directory(ctx)
	defer cancel()
	return s.Store.Accounts().FindByID(ctx, id)
}

// lookupFailure maps a directory error to an outcome. Not found is a
// credential failure, anything else is internal and never "not found".
func lookupFailure(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return fail(op, KindUnknownAccount, nil)
	}
	return fail(op, KindDirectoryUnavailable, err)
}

func tokenFailure(op string, err error) *Error {
	if errors.Is(err, jwtx.ErrExpired) {
		return fail(op, KindTokenExpired, err)
	}
	return fail(op, KindTokenMalformed, err)
}

func (s *SessionService) alert(ctx context.Context, a notify.SecurityAlert) {
	if s.Alerts == nil {
		return
	}
	if a.At.IsZero() {
		a.At = s.now()
	}
	s.Alerts.Alert(context.WithoutCancel(ctx), a)
}

// mint signs a fresh pair for account without touching the store.
func (s *SessionService) mint(op string, account domain.Account) (jwtx.TokenPair, domain.PublicIdentity, error) {
	pub := account.Public()
	pair, err := s.Credentials.IssueTokenPair(jwtx.Identity{
		Subject:     account.ID,
		Email:       account.Email,
		Role:        account.Role.String(),
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Permissions: pub.Permissions,
	})
	if err != nil {
		return jwtx.TokenPair{}, domain.PublicIdentity{}, fail(op, KindInternal, err)
	}
	return pair, pub, nil
}

// issue is the token issuance path shared by login, registration and
// federated login: mint a pair and record its refresh token.
func (s *SessionService) issue(ctx context.Context, op string, account domain.Account) (*Session, error) {
	pair, pub, err := s.mint(op, account)
	if err != nil {
		return nil, err
	}
	if err := s.Revocation.StoreRefresh(ctx, account.ID, pair.RefreshToken, s.Credentials.RefreshTTL()); err != nil {
		return nil, fail(op, KindStoreUnavailable, err)
	}
	return &Session{Tokens: pair, Account: pub}, nil
}

/*
 * Login
 */

// Login authenticates by email and password. Lockout is evaluated before the
// account is even looked up, and every credential failure returns the same
// visible kind whether or not the account exists.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	const op = "login"
	l := slogx.FromContext(ctx)
	identifier := domain.NormalizeEmail(in.Email)

	if s.Guard.ShouldLock(ctx, identifier) {
		s.Guard.RecordAttempt(ctx, identifier, in.SourceAddr, false)
		l.Warn("login refused for locked identifier", "identifier", identifier, "source_addr", in.SourceAddr)
		s.alert(ctx, notify.SecurityAlert{
			Kind:       notify.AlertLockoutHit,
			Identifier: identifier,
			SourceAddr: in.SourceAddr,
		})
		return nil, fail(op, KindLocked, nil)
	}

	account, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("account lookup failed", "identifier", identifier, "error", err)
			return nil, lookupFailure(op, err)
		}
		s.burn(ctx, in.Password)
		return nil, s.loginFailed(ctx, op, identifier, in.SourceAddr, KindUnknownAccount, nil)
	}
	if !account.HasPassword() {
		s.burn(ctx, in.Password)
		return nil, s.loginFailed(ctx, op, identifier, in.SourceAddr, KindPasswordNotSet, nil)
	}

	if err := s.verifyPassword(ctx, in.Password, *account.PasswordHash); err != nil {
		switch {
		case errors.Is(err, cryptox.ErrPasswordMismatch):
			return nil, s.loginFailed(ctx, op, identifier, in.SourceAddr, KindWrongPassword, nil)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return nil, s.loginFailed(ctx, op, identifier, in.SourceAddr, KindVerifyTimeout, err)
		default:
			l.Error("stored password hash unusable", "sub", account.ID, "error", err)
			s.Guard.RecordAttempt(ctx, identifier, in.SourceAddr, false)
			return nil, fail(op, KindInternal, err)
		}
	}

	sess, err := s.issue(ctx, op, account)
	if err != nil {
		l.Error("login issuance failed", "sub", account.ID, "error", err)
		return nil, err
	}
	s.Guard.RecordAttempt(ctx, identifier, in.SourceAddr, true)
	l.Info("login succeeded", "sub", account.ID)
	return sess, nil
}

func (s *SessionService) verifyTimeout() time.Duration {
	if s.VerifyTimeout <= 0 {
		return DefaultVerifyTimeout
	}
	return s.VerifyTimeout
}

func (s *SessionService) verifyPassword(ctx context.Context, password, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout())
	defer cancel()
	return cryptox.VerifyPasswordContext(ctx, password, hash)
}

// burn spends a verification's worth of work so a missing account answers
// no faster than a wrong password.
func (s *SessionService) burn(ctx context.Context, password string) {
	ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout())
	defer cancel()
	cryptox.BurnVerification(ctx, password)
}

// loginFailed records a failed attempt and raises an alert once the
// identifier reaches the lockout threshold.
func (s *SessionService) loginFailed(ctx context.Context, op, identifier, sourceAddr string, kind Kind, cause error) error {
	s.Guard.RecordAttempt(ctx, identifier, sourceAddr, false)
	l := slogx.FromContext(ctx)
	l.Info("login failed", "identifier", identifier, "reason", string(kind))

	n, err := s.Guard.CountFailures(ctx, identifier, s.Guard.window())
	if err != nil {
		l.Error("failure count unavailable", "identifier", identifier, "error", err)
	} else if n >= s.Guard.maxAttempts() {
		l.Warn("lockout threshold reached", "identifier", identifier, "failures", n)
		s.alert(ctx, notify.SecurityAlert{
			Kind:       notify.AlertLockoutThreshold,
			Identifier: identifier,
			SourceAddr: sourceAddr,
			Failures:   n,
		})
	}
	return fail(op, kind, cause)
}

/*
 * Registration
 */

// Register creates a password account and signs it in. An existing email is
// reported as such, registration cannot hide it.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	const op = "register"
	l := slogx.FromContext(ctx)

	identifier := domain.NormalizeEmail(in.Email)
	if !validEmail(identifier) {
		return nil, failf(op, KindInvalidRequest, "invalid email address")
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil || !registrableRoles[role] {
		return nil, failf(op, KindInvalidRequest, "role %q cannot be chosen at registration", in.Role)
	}
	if err := CheckPasswordPolicy(in.Password); err != nil {
		return nil, fail(op, KindWeakPassword, err)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fail(op, KindInternal, err)
	}

	now := s.now()
	account := domain.Account{
		ID:           idx.NewAt(now).String(),
		Email:        identifier,
		PasswordHash: &hash,
		Role:         role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dctx, cancel := s.directory(ctx)
	err = s.Store.Accounts().Create(dctx, account)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fail(op, KindEmailTaken, nil)
		}
		l.Error("account create failed", "error", err)
		return nil, fail(op, KindDirectoryUnavailable, err)
	}

	sess, err := s.issue(ctx, op, account)
	if err != nil {
		l.Error("registration issuance failed", "sub", account.ID, "error", err)
		return nil, err
	}
	s.Guard.RecordAttempt(ctx, identifier, in.SourceAddr, true)
	l.Info("account registered", "sub", account.ID, "role", role.String())
	return sess, nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

/*
 * Refresh
 */

// Refresh exchanges a refresh token for a new pair. The old record is
// swapped for the new one atomically, so of two concurrent refreshes with the
// same token only one succeeds.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	const op = "refresh"
	l := slogx.FromContext(ctx)

	subject, err := s.Credentials.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, tokenFailure(op, err)
	}

	account, err := s.findByID(ctx, subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("account lookup failed", "sub", subject, "error", err)
		}
		return nil, lookupFailure(op, err)
	}

	live, err := s.Revocation.HasRefresh(ctx, subject, refreshToken)
	if err != nil {
		l.Error("refresh record check failed closed", "sub", subject, "error", err)
		return nil, fail(op, KindStoreUnavailable, err)
	}
	if !live {
		s.reuseDetected(ctx, subject, refreshToken)
		return nil, fail(op, KindSessionNotFound, nil)
	}

	pair, pub, err := s.mint(op, account)
	if err != nil {
		return nil, err
	}

	rotated, err := s.Revocation.RotateRefresh(ctx, subject, refreshToken, pair.RefreshToken, s.Credentials.RefreshTTL())
	if err != nil {
		l.Error("refresh rotation failed", "sub", subject, "error", err)
		return nil, fail(op, KindStoreUnavailable, err)
	}
	if !rotated {
		// Another request consumed the record between the check and the swap.
		s.reuseDetected(ctx, subject, refreshToken)
		return nil, fail(op, KindSessionNotFound, nil)
	}

	l.Info("refresh token rotated", "sub", subject,
		"old_fp", cryptox.ShortFingerprint(refreshToken),
		"new_fp", cryptox.ShortFingerprint(pair.RefreshToken))
	return &Session{Tokens: pair, Account: pub}, nil
}

func (s *SessionService) reuseDetected(ctx context.Context, subject, token string) {
	attrs := []any{"sub", subject, "token_fp", cryptox.ShortFingerprint(token)}
	if exp, ok := s.Credentials.PeekExpiry(token); ok {
		attrs = append(attrs, "token_exp", exp)
	}
	slogx.FromContext(ctx).Warn("refresh token presented without a live record", attrs...)
	s.alert(ctx, notify.SecurityAlert{
		Kind:    notify.AlertRefreshReuse,
		Subject: subject,
		Detail:  "token_fp=" + cryptox.ShortFingerprint(token),
	})
}

/*
 * Access token checks
 */

// Authenticate verifies an access token and rejects it when blacklisted. The
// blacklist check fails open, see revocation.Client.IsBlacklisted.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*jwtx.Claims, error) {
	return s.authenticate(ctx, "authenticate", accessToken)
}

func (s *SessionService) authenticate(ctx context.Context, op, accessToken string) (*jwtx.Claims, error) {
	claims, err := s.Credentials.VerifyAccess(accessToken)
	if err != nil {
		return nil, tokenFailure(op, err)
	}
	if s.Revocation.IsBlacklisted(ctx, accessToken) {
		return nil, fail(op, KindTokenRevoked, nil)
	}
	return claims, nil
}

// Me returns the public identity behind an access token, read fresh from the
// directory.
func (s *SessionService) Me(ctx context.Context, accessToken string) (domain.PublicIdentity, error) {
	const op = "me"
	claims, err := s.authenticate(ctx, op, accessToken)
	if err != nil {
		return domain.PublicIdentity{}, err
	}
	account, err := s.findByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("account lookup failed", "sub", claims.Subject, "error", err)
		}
		return domain.PublicIdentity{}, lookupFailure(op, err)
	}
	return account.Public(), nil
}

/*
 * Logout
 */

// Logout blacklists the access token for the rest of its life and ends every
// session of its subject, not only the one the refresh token belongs to.
// Signing out everywhere is the policy, there is no per-device logout.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	const op = "logout"
	l := slogx.FromContext(ctx)

	claims, err := s.authenticate(ctx, op, accessToken)
	if err != nil {
		return err
	}
	subject := claims.Subject

	ttl := s.Credentials.Remaining(claims.ExpiresAt.Time)
	if err := s.Revocation.Blacklist(ctx, accessToken, ttl); err != nil {
		l.Warn("access token blacklist failed", "sub", subject,
			"token_fp", cryptox.ShortFingerprint(accessToken), "error", err)
	}

	if refreshToken != "" {
		switch owner, err := s.Credentials.VerifyRefresh(refreshToken); {
		case err != nil:
			l.Debug("logout ignored unusable refresh token", "sub", subject, "error", err)
		case owner != subject:
			l.Warn("logout refresh token belongs to another subject", "sub", subject)
		default:
			if err := s.Revocation.RemoveRefresh(ctx, subject, refreshToken); err != nil {
				l.Warn("refresh record removal failed", "sub", subject, "error", err)
			}
		}
	}

	n, err := s.Revocation.RemoveAllRefresh(ctx, subject)
	if err != nil {
		l.Error("session revocation failed", "sub", subject, "error", err)
		return fail(op, KindStoreUnavailable, err)
	}
	l.Info("logged out", "sub", subject, "sessions_revoked", n)
	return nil
}

// RevokeSessions ends every session of subject. Used by operators.
func (s *SessionService) RevokeSessions(ctx context.Context, subject string) (int, error) {
	const op = "revoke_sessions"
	if strings.TrimSpace(subject) == "" {
		return 0, failf(op, KindInvalidRequest, "subject required")
	}
	n, err := s.Revocation.RemoveAllRefresh(ctx, subject)
	if err != nil {
		return 0, fail(op, KindStoreUnavailable, err)
	}
	slogx.FromContext(ctx).Info("sessions revoked", "sub", subject, "sessions_revoked", n)
	return n, nil
}

/*
 * Password reset
 */

// ForgotPassword always succeeds. Lookup, token creation and notification run
// in the background so neither the answer nor its timing tells whether the
// account exists.
func (s *SessionService) ForgotPassword(ctx context.Context, email string) error {
	identifier := domain.NormalizeEmail(email)
	if identifier == "" {
		return nil
	}

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sendReset(bg, identifier)
	}()
	return nil
}

func (s *SessionService) sendReset(ctx context.Context, identifier string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	l := slogx.FromContext(ctx)

	account, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Debug("password reset for unknown identifier", "identifier", identifier)
			return
		}
		l.Error("password reset lookup failed", "identifier", identifier, "error", err)
		return
	}

	token, err := cryptox.GenerateToken(cryptox.ResetTokenBytes)
	if err != nil {
		l.Error("reset token generation failed", "error", err)
		return
	}

	ttl := s.resetTTL()
	ticket := domain.ResetTicket{Subject: account.ID, Email: account.Email, ExpiresAt: s.now().Add(ttl)}
	if err := s.Revocation.SetResetToken(ctx, token, ticket, ttl); err != nil {
		l.Error("reset token store failed", "sub", account.ID, "error", err)
		return
	}

	if s.Notifier == nil {
		return
	}
	err = s.Notifier.SendPasswordReset(ctx, notify.PasswordResetNotice{
		Subject:   account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresAt: ticket.ExpiresAt,
	})
	if err != nil {
		l.Warn("password reset notice not delivered", "sub", account.ID, "error", err)
		return
	}
	l.Info("password reset issued", "sub", account.ID, "token_fp", cryptox.ShortFingerprint(token))
}

// CheckResetToken reports whether token is redeemable without consuming it.
func (s *SessionService) CheckResetToken(ctx context.Context, token string) error {
	const op = "check_reset_token"
	if token == "" {
		return fail(op, KindInvalidResetToken, nil)
	}
	if _, err := s.Revocation.GetResetToken(ctx, token); err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			return fail(op, KindInvalidResetToken, nil)
		}
		return fail(op, KindStoreUnavailable, err)
	}
	return nil
}

// ResetPassword redeems a reset token exactly once. The token is taken out
// of the store before the password changes, so concurrent redemptions cannot
// both win and a crash after the update cannot leave it redeemable. Sessions
// are revoked last.
func (s *SessionService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "reset_password"
	l := slogx.FromContext(ctx)

	if err := CheckPasswordPolicy(newPassword); err != nil {
		return fail(op, KindWeakPassword, err)
	}
	if token == "" {
		return fail(op, KindInvalidResetToken, nil)
	}

	ticket, err := s.Revocation.TakeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			return fail(op, KindInvalidResetToken, nil)
		}
		l.Error("reset token lookup failed", "error", err)
		return fail(op, KindStoreUnavailable, err)
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		s.restoreResetToken(ctx, token, ticket)
		return fail(op, KindInternal, err)
	}

	dctx, cancel := s.directory(ctx)
	updated, err := s.Store.Accounts().UpdatePasswordHash(dctx, ticket.Subject, hash)
	cancel()
	if err != nil {
		l.Error("password update failed", "sub", ticket.Subject, "error", err)
		s.restoreResetToken(ctx, token, ticket)
		return fail(op, KindDirectoryUnavailable, err)
	}
	if !updated {
		// The account is gone, the token dies with it.
		return fail(op, KindInvalidResetToken, nil)
	}

	n, err := s.Revocation.RemoveAllRefresh(ctx, ticket.Subject)
	if err != nil {
		l.Error("session revocation after password reset failed", "sub", ticket.Subject, "error", err)
		s.alert(ctx, notify.SecurityAlert{
			Kind:    notify.AlertRevocationFailed,
			Subject: ticket.Subject,
			Detail:  err.Error(),
		})
	}
	l.Info("password reset", "sub", ticket.Subject, "sessions_revoked", n)
	return nil
}

// restoreResetToken puts a taken ticket back after a failure that left the
// password unchanged. It keeps only the lifetime the ticket had left.
func (s *SessionService) restoreResetToken(ctx context.Context, token string, ticket domain.ResetTicket) {
	l := slogx.FromContext(ctx)
	remaining := ticket.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		l.Info("reset token expired before restore", "sub", ticket.Subject)
		return
	}
	if err := s.Revocation.SetResetToken(context.WithoutCancel(ctx), token, ticket, remaining); err != nil {
		l.Error("reset token restore failed", "sub", ticket.Subject, "error", err)
	}
}

/*
 * Federation
 */

// CompleteFederatedLogin signs in an identity already verified by an external
// provider. It resolves a linked account, else links an account with the
// same verified email, else creates a password-less account, all in one
// transaction, then issues tokens as Login does.
func (s *SessionService) CompleteFederatedLogin(ctx context.Context, ext domain.ExternalIdentity) (*Session, error) {
	const op = "federated_login"
	l := slogx.FromContext(ctx)

	provider := strings.ToLower(strings.TrimSpace(ext.Provider))
	if provider == "" || ext.Subject == "" {
		return nil, failf(op, KindInvalidRequest, "provider and subject required")
	}
	email := domain.NormalizeEmail(ext.Email)

	var account domain.Account
	dctx, cancel := s.directory(ctx)
	err := s.Store.WithTx(dctx, func(tx store.Tx) error {
		found, err := tx.Accounts().FindByExternalIdentity(dctx, provider, ext.Subject)
		if err == nil {
			account = found
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if !validEmail(email) {
			return failf(op, KindInvalidRequest, "external identity has no usable email")
		}

		if ext.EmailVerified {
			found, err = tx.Accounts().FindByIdentifier(dctx, email)
			switch {
			case err == nil:
				account = found
				return tx.Accounts().LinkIdentity(dctx, account.ID, provider, ext.Subject)
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		now := s.now()
		account = domain.Account{
			ID:        idx.NewAt(now).String(),
			Email:     email,
			Role:      domain.DefaultRole,
			FirstName: strings.TrimSpace(ext.FirstName),
			LastName:  strings.TrimSpace(ext.LastName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Accounts().Create(dctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Unverified email colliding with an existing account.
				return fail(op, KindEmailTaken, nil)
			}
			return err
		}
		return tx.Accounts().LinkIdentity(dctx, account.ID, provider, ext.Subject)
	})
	cancel()
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		l.Error("federated account resolution failed", "provider", provider, "error", err)
		return nil, fail(op, KindDirectoryUnavailable, err)
	}

	sess, err := s.issue(ctx, op, account)
	if err != nil {
		return nil, err
	}
	s.Guard.RecordAttempt(ctx, email, "", true)
	l.Info("federated login succeeded", "sub", account.ID, "provider", provider)
	return sess, nil
}

// Wait blocks until background password reset work has finished.
func (s *SessionService) Wait() { s.wg.Wait() }
