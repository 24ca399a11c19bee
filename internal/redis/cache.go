package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

type BreakerSettings struct {
	// Failures is the number of consecutive errors that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Failures: 5, Cooldown: 10 * time.Second}
}

// Cache implements cache.Cache on redis. Every call passes through a
// circuit breaker, so an outage is detected per call and a recovery is
// picked up by the half-open probe without a restart.
type Cache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewCache(client *redis.Client, bs BreakerSettings, log zerolog.Logger, m *metrics.Collector) *Cache {
	if bs.Failures == 0 {
		bs.Failures = DefaultBreakerSettings().Failures
	}
	if bs.Cooldown <= 0 {
		bs.Cooldown = DefaultBreakerSettings().Cooldown
	}

	l := log.With().Str("component", "redis-cache").Logger()

	st := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     bs.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cache breaker state change")
			if m != nil {
				m.BreakerState(name, to == gobreaker.StateOpen)
			}
		},
	}

	return &Cache{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[[]byte](st),
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		return nil, translate(err)
	}
	return val, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	return translate(err)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	return translate(err)
}

// Healthy reports whether the breaker currently lets calls through.
func (c *Cache) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return cache.ErrMiss
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %w", cache.ErrUnavailable, err)
	default:
		return err
	}
}
