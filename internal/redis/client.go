package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Username string
	Password string
	TLS      bool
	// OpTimeout bounds dial, read and write on every command.
	OpTimeout time.Duration
}

// NewRedisClient builds the client. A failed ping is returned alongside
// the client so callers can start degraded and recover once redis is back.
func NewRedisClient(opts Options) (*redis.Client, error) {
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ro := &redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           0,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     10,
		MinIdleConns: 1,
	}
	if opts.TLS {
		ro.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(ro)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return rdb, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
