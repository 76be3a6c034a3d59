package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/aussiebroadwan/haulage/pkg/cryptox"
)

const (
	nsBlacklist = "blacklist"
	nsRefresh   = "refresh"
	nsReset     = "pwdreset"

	DefaultTimeout = 2 * time.Second
)

type Options struct {
	// Prefix is prepended to every key, e.g. "haulage:" when the Redis
	// instance is shared with other services.
	Prefix  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client exposes the three namespaces over a Backend. Keys are built from the
// SHA-256 fingerprint of a token, the raw token never reaches the store.
type Client struct {
	backend Backend
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(backend Backend, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend: backend,
		prefix:  opts.Prefix,
		timeout: opts.Timeout,
		logger:  logger.With("component", "revocation"),
	}
}

func (c *Client) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

func (c *Client) blacklistKey(token string) string {
	return c.key(nsBlacklist, cryptox.FingerprintToken(token))
}

func (c *Client) refreshKey(subject, token string) string {
	return c.key(nsRefresh, subject, cryptox.FingerprintToken(token))
}

func (c *Client) refreshPrefix(subject string) string {
	return c.key(nsRefresh, subject) + ":"
}

func (c *Client) resetKey(token string) string {
	return c.key(nsReset, cryptox.FingerprintToken(token))
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

/*
 * Blacklist
 */

// Blacklist marks an access token as revoked for ttl, which should be the
// token's remaining lifetime. A token that has already expired is not written.
func (c *Client) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Set(ctx, c.blacklistKey(token), "1", ttl)
}

// IsBlacklisted fails open: when the store cannot answer it reports false and
// logs the failure. An outage of the store must not reject every issued
// access token. Revocation during an outage is therefore best effort.
func (c *Client) IsBlacklisted(ctx context.Context, token string) bool {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	ok, err := c.backend.Exists(ctx, c.blacklistKey(token))
	if err != nil {
		c.logger.WarnContext(ctx, "blacklist check failed open",
			"token_fp", cryptox.ShortFingerprint(token), "error", err)
		return false
	}
	return ok
}

/*
 * Refresh records
 */

func (c *Client) StoreRefresh(ctx context.Context, subject, token string, ttl time.Duration) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Set(ctx, c.refreshKey(subject, token), subject, ttl)
}

// HasRefresh fails closed. Any store error is returned and the caller must
// treat the token as invalid.
func (c *Client) HasRefresh(ctx context.Context, subject, token string) (bool, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	ok, err := c.backend.Exists(ctx, c.refreshKey(subject, token))
	if err != nil {
		return false, fmt.Errorf("refresh lookup: %w", err)
	}
	return ok, nil
}

// RotateRefresh replaces oldToken's record with newToken's in one atomic step.
// It returns false when the old record was already gone, which means another
// rotation or a logout won the race.
func (c *Client) RotateRefresh(ctx context.Context, subject, oldToken, newToken string, ttl time.Duration) (bool, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Swap(ctx, c.refreshKey(subject, oldToken), c.refreshKey(subject, newToken), subject, ttl)
}

func (c *Client) RemoveRefresh(ctx context.Context, subject, token string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Delete(ctx, c.refreshKey(subject, token))
}

// RemoveAllRefresh deletes every refresh record of subject and returns how
// many were removed. No records is not an error.
func (c *Client) RemoveAllRefresh(ctx context.Context, subject string) (int, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	keys, err := c.backend.ScanPrefix(ctx, c.refreshPrefix(subject))
	if err != nil {
		return 0, fmt.Errorf("scan refresh records: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.backend.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete refresh records: %w", err)
	}
	return len(keys), nil
}

/*
 * Password reset tokens
 */

func (c *Client) SetResetToken(ctx context.Context, token string, ticket domain.ResetTicket, ttl time.Duration) error {
	raw, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Set(ctx, c.resetKey(token), string(raw), ttl)
}

// GetResetToken reads a ticket without consuming it.
func (c *Client) GetResetToken(ctx context.Context, token string) (domain.ResetTicket, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	raw, err := c.backend.Get(ctx, c.resetKey(token))
	if err != nil {
		return domain.ResetTicket{}, err
	}
	return decodeTicket(raw)
}

// TakeResetToken consumes a ticket. Only one of several concurrent callers
// gets it, the rest see ErrNotFound.
func (c *Client) TakeResetToken(ctx context.Context, token string) (domain.ResetTicket, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	raw, err := c.backend.Take(ctx, c.resetKey(token))
	if err != nil {
		return domain.ResetTicket{}, err
	}
	return decodeTicket(raw)
}

func (c *Client) ClearResetToken(ctx context.Context, token string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Delete(ctx, c.resetKey(token))
}

func decodeTicket(raw string) (domain.ResetTicket, error) {
	var t domain.ResetTicket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return domain.ResetTicket{}, fmt.Errorf("decode reset ticket: %w", err)
	}
	if t.Subject == "" {
		return domain.ResetTicket{}, errors.New("decode reset ticket: missing subject")
	}
	return t, nil
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.backend.Ping(ctx)
}

func (c *Client) Close() error { return c.backend.Close() }
