package revocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisMaxRetries = 5
	DefaultRedisBackoffMax = 5 * time.Second

	scanCount = 100
)

// swapScript deletes KEYS[1] and, only if it existed, writes KEYS[2] with
// value ARGV[1] and a PX expiry of ARGV[2] milliseconds.
var swapScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 1 then
  redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
  return 1
end
return 0
`)

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int           // connection attempts before giving up, 0 means DefaultRedisMaxRetries
	BackoffMax time.Duration // cap on the delay between attempts
	Logger     *slog.Logger
}

// RedisBackend talks to Redis. The connection is established lazily on first
// use with exponential backoff, and dropped again when a command fails at the
// connection level so the next call reconnects.
type RedisBackend struct {
	cfg    RedisConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *redis.Client
	closed bool
}

func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRedisMaxRetries
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultRedisBackoffMax
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBackend{cfg: cfg, logger: logger.With("component", "redis")}
}

func (r *RedisBackend) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = r.cfg.BackoffMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)
}

// conn returns the live client, connecting first if needed.
func (r *RedisBackend) conn(ctx context.Context) (*redis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrUnavailable
	}
	if r.client != nil {
		return r.client, nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     r.cfg.Addr,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	})

	attempt := 0
	op := func() error {
		attempt++
		err := c.Ping(ctx).Err()
		if err != nil {
			r.logger.Warn("redis connect failed", "addr", r.cfg.Addr, "attempt", attempt, "error", err)
		}
		return err
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnavailable, r.cfg.Addr, err)
	}

	if attempt > 1 {
		r.logger.Info("redis connected", "addr", r.cfg.Addr, "attempts", attempt)
	}
	r.client = c
	return c, nil
}

// fail wraps err as ErrUnavailable and forgets the client when the error looks
// like a broken connection.
func (r *RedisBackend) fail(c *redis.Client, err error) error {
	if isConnErr(err) {
		r.mu.Lock()
		if r.client == c {
			_ = c.Close()
			r.client = nil
		}
		r.mu.Unlock()
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func isConnErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, redis.ErrClosed)
}

func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrNoTTL
	}
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, value, ttl).Err(); err != nil {
		return r.fail(c, err)
	}
	return nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return "", err
	}
	v, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", r.fail(c, err)
	}
	return v, nil
}

func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	n, err := c.Exists(ctx, key).Result()
	if err != nil {
		return false, r.fail(c, err)
	}
	return n > 0, nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		return r.fail(c, err)
	}
	return nil
}

func (r *RedisBackend) Take(ctx context.Context, key string) (string, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return "", err
	}
	v, err := c.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", r.fail(c, err)
	}
	return v, nil
}

func (r *RedisBackend) Swap(ctx context.Context, oldKey, newKey, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrNoTTL
	}
	c, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	n, err := swapScript.Run(ctx, c, []string{oldKey, newKey}, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, r.fail(c, err)
	}
	return n == 1, nil
}

func (r *RedisBackend) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	match := escapeGlob(prefix) + "*"
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, r.fail(c, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return keys, nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return r.fail(c, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

var globReplacer = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
