package jwtx

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/golang-jwt/jwt/v5"
)

// CredentialOptions configures Credentials.
type CredentialOptions struct {
	Secrets Secrets

	// Issuer is set on and required of both token kinds.
	Issuer string

	// Audience is set on and required of access tokens.
	Audience []string

	// AccessTTL and RefreshTTL use ParseTTL syntax. Empty means the defaults.
	AccessTTL  string
	RefreshTTL string

	Clock clockx.Clock
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// Credentials mints and verifies access and refresh tokens. It holds no
// mutable state and is safe for concurrent use.
type Credentials struct {
	issuer     string
	audience   []string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clockx.Clock

	accessSigner    Signer
	refreshSigner   Signer
	accessVerifier  Verifier
	refreshVerifier Verifier
}

// NewCredentials wires signers and verifiers for both token kinds.
func NewCredentials(opts CredentialOptions) (*Credentials, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	accessTTL, refreshTTL := DefaultAccessTokenTTL, DefaultRefreshTokenTTL
	var err error
	if opts.AccessTTL != "" {
		if accessTTL, err = ParseTTL(opts.AccessTTL); err != nil {
			return nil, fmt.Errorf("jwtx: access ttl: %w", err)
		}
	}
	if opts.RefreshTTL != "" {
		if refreshTTL, err = ParseTTL(opts.RefreshTTL); err != nil {
			return nil, fmt.Errorf("jwtx: refresh ttl: %w", err)
		}
	}

	if bytes.Equal(opts.Secrets.Access, opts.Secrets.Refresh) {
		return nil, ErrSecretReused
	}
	accessSigner, err := NewSignerHS256(opts.Secrets.Access)
	if err != nil {
		return nil, fmt.Errorf("jwtx: access signer: %w", err)
	}
	refreshSigner, err := NewSignerHS256(opts.Secrets.Refresh)
	if err != nil {
		return nil, fmt.Errorf("jwtx: refresh signer: %w", err)
	}

	clock := clockx.Default(opts.Clock)

	return &Credentials{
		issuer:        opts.Issuer,
		audience:      opts.Audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		clock:         clock,
		accessSigner:  accessSigner,
		refreshSigner: refreshSigner,
		accessVerifier: NewVerifierHS256(opts.Secrets.Access, VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
			Type:     TypeAccess,
			Clock:    clock,
		}),
		refreshVerifier: NewVerifierHS256(opts.Secrets.Refresh, VerifyOptions{
			Issuer: opts.Issuer,
			Type:   TypeRefresh,
			Clock:  clock,
		}),
	}, nil
}

func (c *Credentials) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Credentials) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess mints an access token for id.
func (c *Credentials) IssueAccess(id Identity) (string, error) {
	claims := NewAccessClaims(id, c.issuer, c.audience, c.accessTTL, c.clock.Now())
	token, err := c.accessSigner.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign access token: %w", err)
	}
	return token, nil
}

// IssueRefresh mints a refresh token bound to subject only.
func (c *Credentials) IssueRefresh(subject string) (string, error) {
	claims := NewRefreshClaims(subject, c.issuer, c.refreshTTL, c.clock.Now())
	token, err := c.refreshSigner.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign refresh token: %w", err)
	}
	return token, nil
}

// IssueTokenPair mints both tokens for id.
func (c *Credentials) IssueTokenPair(id Identity) (TokenPair, error) {
	access, err := c.IssueAccess(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := c.IssueRefresh(id.Subject)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(c.accessTTL / time.Second),
	}, nil
}

// VerifyAccess checks signature, type, issuer, audience and expiry. Errors
// match ErrExpired or ErrMalformed.
func (c *Credentials) VerifyAccess(token string) (*Claims, error) {
	return c.accessVerifier.Verify(token)
}

// VerifyRefresh checks a refresh token and returns its subject. Errors match
// ErrExpired or ErrMalformed.
func (c *Credentials) VerifyRefresh(token string) (string, error) {
	claims, err := c.refreshVerifier.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// PeekExpiry decodes the token without checking its signature and returns
// the exp claim. Only for cleanup and logging, never for authorization.
func (c *Credentials) PeekExpiry(token string) (time.Time, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Remaining returns how long until exp, rounded up to whole seconds, and zero
// once it has passed.
func (c *Credentials) Remaining(exp time.Time) time.Duration {
	d := exp.Sub(c.clock.Now())
	if d <= 0 {
		return 0
	}
	if rem := d % time.Second; rem > 0 {
		d += time.Second - rem
	}
	return d
}
