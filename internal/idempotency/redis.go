package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/vocalstock/internal/resilience"
)

const defaultKeyPrefix = "vocalstock:idem:"

// RedisOption is a functional option for [Redis].
type RedisOption func(*Redis)

// WithKeyPrefix sets the prefix prepended to every key.
// Default: "vocalstock:idem:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithBreaker replaces the circuit breaker configuration.
func WithBreaker(cfg resilience.CircuitBreakerConfig) RedisOption {
	return func(r *Redis) {
		r.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// Redis is a Guard shared between replicas, built on SET NX EX.
//
// Redis trouble never blocks a request: when the call fails or the breaker is
// open, Claim logs a warning and lets the request through.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	breaker *resilience.CircuitBreaker
}

var _ Guard = (*Redis)(nil)

// NewRedis returns a Redis guard. A non-positive ttl uses [DefaultTTL].
func NewRedis(client *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Redis{
		client:  client,
		ttl:     ttl,
		prefix:  defaultKeyPrefix,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "idempotency/redis"}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Claim implements Guard.
func (r *Redis) Claim(ctx context.Context, key string) error {
	var fresh bool
	err := r.breaker.Execute(func() error {
		var err error
		fresh, err = r.client.SetNX(ctx, r.prefix+key, 1, r.ttl).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Warn("idempotency check skipped, redis breaker open", "key", key)
		} else {
			slog.Warn("idempotency check skipped, redis failed", "key", key, "err", err)
		}
		return nil
	}
	if !fresh {
		return ErrDuplicate
	}
	return nil
}

// Release implements Guard.
func (r *Redis) Release(ctx context.Context, key string) error {
	err := r.breaker.Execute(func() error {
		return r.client.Del(ctx, r.prefix+key).Err()
	})
	if err != nil {
		return fmt.Errorf("idempotency: release %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity. Used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("idempotency: redis ping: %w", err)
	}
	return nil
}

// BreakerState exposes the breaker state for diagnostics.
func (r *Redis) BreakerState() resilience.State {
	return r.breaker.State()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
