package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/haulage/pkg/clockx"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// VerifyOptions captures what a verifier requires of a token.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain one of (claims.aud). Empty means "don't care".
	Audience []string

	// Type the "typ" claim must equal.
	Type string

	// Leeway allows small clock skew when validating exp, nbf and iat.
	Leeway time.Duration

	Clock clockx.Clock
}

// Every verification failure matches ErrMalformed, except an expired token
// which matches ErrExpired only. The specific cause is wrapped alongside.
var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrExpired   = errors.New("jwtx: token expired")

	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrTokenType    = errors.New("jwtx: token type mismatch")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HS256Verifier validates JWTs signed with a shared HMAC-SHA256 secret.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
}

// NewVerifierHS256 creates a verifier for tokens signed with secret.
func NewVerifierHS256(secret []byte, opts VerifyOptions) *HS256Verifier {
	opts.Clock = clockx.Default(opts.Clock)
	return &HS256Verifier{secret: secret, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims. Time based
// claims are checked against the verifier's clock, not the wall clock.
func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrInvalidSig)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	// Now check all the claim requirements
	if err := claims.ValidateType(v.opts.Type); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w: missing sub", ErrMalformed, ErrInvalidClaim)
	}

	now := v.opts.Clock.Now()
	if claims.IssuedAt != nil && now.Before(claims.IssuedAt.Add(-v.opts.Leeway)) {
		return nil, fmt.Errorf("%w: %w: issued in the future", ErrMalformed, ErrNotYetValid)
	}
	if err := claims.ValidateExpiry(now, v.opts.Leeway); err != nil {
		if errors.Is(err, ErrExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return claims, nil
}
