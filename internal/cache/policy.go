package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

// TTLs is the lifetime table per key family. A positive availability
// decision lives shorter than a negative one because it is a promise
// that a concurrent booking can break.
type TTLs struct {
	Patient        time.Duration
	Doctor         time.Duration
	Appointments   time.Duration
	Available      time.Duration
	Conflict       time.Duration
	DoctorNotFound time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Patient:        24 * time.Hour,
		Doctor:         30 * time.Minute,
		Appointments:   10 * time.Minute,
		Available:      60 * time.Second,
		Conflict:       10 * time.Minute,
		DoctorNotFound: 5 * time.Minute,
	}
}

// Policy wraps a Cache with JSON encoding, per-call timeouts and the
// fail-open rule: no cache error ever reaches the caller.
type Policy struct {
	cache   Cache
	ttl     TTLs
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.Collector
}

func NewPolicy(c Cache, ttl TTLs, timeout time.Duration, log zerolog.Logger, m *metrics.Collector) *Policy {
	if c == nil {
		c = Noop{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Policy{
		cache:   c,
		ttl:     ttl,
		timeout: timeout,
		log:     log.With().Str("component", "cache").Logger(),
		metrics: m,
	}
}

func (p *Policy) TTL() TTLs {
	return p.ttl
}

// Load decodes the value at key into dst and reports whether it did.
// Absent keys, timeouts, unreachable caches and malformed payloads are
// all misses.
func (p *Policy) Load(ctx context.Context, key string, dst any) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fam := family(key)

	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			p.count(fam, "get", "miss")
			return false
		}
		if errors.Is(err, ErrUnavailable) {
			p.count(fam, "get", "unavailable")
			p.log.Debug().Str("key", key).Msg("cache unavailable, reading store")
			return false
		}
		p.count(fam, "get", "error")
		p.log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to store")
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		p.count(fam, "get", "malformed")
		p.log.Warn().Err(err).Str("key", key).Msg("malformed cache payload treated as miss")
		return false
	}

	p.count(fam, "get", "hit")
	return true
}

// Store writes v at key with ttl. Failures are logged and dropped.
func (p *Policy) Store(ctx context.Context, key string, v any, ttl time.Duration) {
	fam := family(key)

	raw, err := json.Marshal(v)
	if err != nil {
		p.count(fam, "set", "error")
		p.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.cache.Set(ctx, key, raw, ttl); err != nil {
		if errors.Is(err, ErrUnavailable) {
			p.count(fam, "set", "unavailable")
			return
		}
		p.count(fam, "set", "error")
		p.log.Warn().Err(err).Str("key", key).Dur("ttl", ttl).Msg("cache write failed")
		return
	}
	p.count(fam, "set", "ok")
}

// Invalidate drops key. Failures are logged and dropped.
func (p *Policy) Invalidate(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fam := family(key)
	if err := p.cache.Delete(ctx, key); err != nil {
		p.count(fam, "delete", "error")
		p.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		return
	}
	p.count(fam, "delete", "ok")
}

func (p *Policy) count(fam, op, result string) {
	if p.metrics == nil {
		return
	}
	p.metrics.CacheOps.WithLabelValues(fam, op, result).Inc()
}
