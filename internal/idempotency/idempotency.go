// Package idempotency rejects replays of client requests carrying the same
// Idempotency-Key within a TTL.
//
// A [Guard] is consulted before a command runs. The first [Guard.Claim] of a
// key succeeds; later claims return [ErrDuplicate] until the key expires or
// is released. Guards protect against client retries only; two different
// keys never block each other.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrDuplicate is returned by Claim for a key that is already held.
var ErrDuplicate = errors.New("idempotency: duplicate request")

// DefaultTTL is how long a claimed key is remembered.
const DefaultTTL = 24 * time.Hour

// Guard records request keys.
type Guard interface {
	// Claim marks key as seen. It returns ErrDuplicate if key is already held.
	Claim(ctx context.Context, key string) error

	// Release forgets key so that a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Nop
// ─────────────────────────────────────────────────────────────────────────────

// Nop accepts every request.
type Nop struct{}

var _ Guard = Nop{}

// Claim implements Guard.
func (Nop) Claim(context.Context, string) error { return nil }

// Release implements Guard.
func (Nop) Release(context.Context, string) error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Memory
// ─────────────────────────────────────────────────────────────────────────────

// MemoryOption is a functional option for [Memory].
type MemoryOption func(*Memory)

// WithClock overrides the time source. Default: time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// Memory is an in-process Guard. Expired keys are swept lazily on Claim.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

var _ Guard = (*Memory)(nil)

// NewMemory returns a Memory guard. A non-positive ttl uses [DefaultTTL].
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Claim implements Guard.
func (m *Memory) Claim(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	if _, held := m.seen[key]; held {
		return ErrDuplicate
	}
	m.seen[key] = now.Add(m.ttl)
	return nil
}

// Release implements Guard.
func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

// Len returns the number of keys currently held, including expired keys not
// yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
