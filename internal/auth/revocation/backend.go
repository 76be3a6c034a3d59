// Package revocation holds the shared expiring key-value state of the auth
// core: blacklisted access tokens, live refresh-token records and one-time
// password-reset tokens.
package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoTTL is returned when a write would create a key without expiry.
	ErrNoTTL = errors.New("revocation: ttl must be positive")

	// ErrUnavailable wraps any failure to reach the backing store.
	ErrUnavailable = errors.New("revocation: store unavailable")

	// ErrNotFound is returned by Get and Take when the key is absent or expired.
	ErrNotFound = errors.New("revocation: key not found")
)

// Backend is the minimal TTL key-value contract the Client needs. Every key
// written through it carries an expiry.
type Backend interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error

	// Take atomically reads and deletes key. Of several concurrent callers
	// at most one observes the value.
	Take(ctx context.Context, key string) (string, error)

	// Swap atomically deletes oldKey and writes newKey, but only if oldKey
	// was present. It reports whether the swap happened.
	Swap(ctx context.Context, oldKey, newKey, value string, ttl time.Duration) (bool, error)

	// ScanPrefix lists every live key beginning with prefix.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
