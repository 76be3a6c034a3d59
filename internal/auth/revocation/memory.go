package revocation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/haulage/pkg/clockx"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryBackend is a process-local Backend. It is used in development when no
// Redis address is configured and as the fake in tests.
type MemoryBackend struct {
	mu      sync.Mutex
	clock   clockx.Clock
	entries map[string]memoryEntry
	closed  bool
}

func NewMemoryBackend(clock clockx.Clock) *MemoryBackend {
	return &MemoryBackend{
		clock:   clockx.Default(clock),
		entries: make(map[string]memoryEntry),
	}
}

// lookup must be called with mu held.
func (m *MemoryBackend) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryBackend) check() error {
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrNoTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", err
	}
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryBackend) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", err
	}
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	delete(m.entries, key)
	return e.value, nil
}

func (m *MemoryBackend) Swap(_ context.Context, oldKey, newKey, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrNoTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	if _, ok := m.lookup(oldKey); !ok {
		return false, nil
	}
	delete(m.entries, oldKey)
	m.entries[newKey] = memoryEntry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	return true, nil
}

func (m *MemoryBackend) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var keys []string
	for k := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := m.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check()
}

// Close marks the backend unavailable. Later calls return ErrUnavailable,
// which makes it usable as an outage simulator in tests.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryBackend) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of entries held, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
