package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants used when the deployment does not override them.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type discriminators carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// WildcardPermission grants every capability.
const WildcardPermission = "*"

// Identity is the subject data embedded into an access token.
type Identity struct {
	Subject     string
	Email       string
	Role        string
	FirstName   string
	LastName    string
	Permissions []string
}

// Claims are shared by access and refresh tokens. Refresh tokens only ever
// populate the registered claims and Type, everything else is omitted.
type Claims struct {
	jwt.RegisteredClaims

	// Type is "access" or "refresh"
	Type string `json:"typ"`

	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	FirstName   string   `json:"given_name,omitempty"`
	LastName    string   `json:"family_name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// NewAccessClaims builds access-token claims for id.
func NewAccessClaims(
	id Identity,
	issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type:        TypeAccess,
		Email:       id.Email,
		Role:        id.Role,
		FirstName:   id.FirstName,
		LastName:    id.LastName,
		Permissions: id.Permissions,
	}
}

// NewRefreshClaims builds refresh-token claims. Only the subject is bound.
func NewRefreshClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type: TypeRefresh,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// minted for the same subject within the same second still differ because of it.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Identity returns the identity carried by access claims.
func (c *Claims) Identity() Identity {
	return Identity{
		Subject:     c.Subject,
		Email:       c.Email,
		Role:        c.Role,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Permissions: c.Permissions,
	}
}

// HasPermission reports whether the claims grant perm, honouring the wildcard.
func (c *Claims) HasPermission(perm string) bool {
	return slices.Contains(c.Permissions, WildcardPermission) || slices.Contains(c.Permissions, perm)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateType checks the "typ" discriminator.
func (c *Claims) ValidateType(expected string) error {
	if c.Type != expected {
		return ErrTokenType
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf
// at the supplied instant. A token without exp is rejected.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
