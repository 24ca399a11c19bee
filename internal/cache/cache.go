// Package cache holds the caching rules shared by the patient and
// availability lookups. Every entry is derived from the store and
// disposable: callers must stay correct when every read misses.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable is returned while the backend is known to be down.
	ErrUnavailable = errors.New("cache unavailable")
)

// Cache is the byte-level port implemented by redis and by Noop.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Noop is the cache used when caching is disabled. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }
