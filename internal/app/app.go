// Package app wires the booking components from configuration. Every
// binary builds the same graph; only the entry point differs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/db"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
	redisclient "github.com/hackgods/appointment-booking-engine/internal/redis"
)

type Components struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil when the cache is disabled
	Metrics *metrics.Collector

	Repo      *appointment.PgRepository
	Policy    *cache.Policy
	Engine    *appointment.Engine
	Directory *appointment.Directory
	Ledger    *appointment.Ledger
	Locker    redisclient.Locker // nil when the lease is disabled
}

// Build connects postgres, applies the schema and connects redis when
// caching is enabled. Redis being down at start is logged, not fatal.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger, reg prometheus.Registerer) (*Components, error) {
	m := metrics.NewCollector(reg)

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to Postgres")

	schemaCtx, cancelSchema := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureSchema(schemaCtx, pool)
	cancelSchema()
	if err != nil {
		pool.Close()
		return nil, err
	}

	c := &Components{Pool: pool, Metrics: m}

	var backend cache.Cache = cache.Noop{}
	if cfg.CacheEnabled {
		rdb, err := redisclient.NewRedisClient(redisclient.Options{
			Addr:      cfg.RedisAddr,
			Username:  cfg.RedisUsername,
			Password:  cfg.RedisPassword,
			TLS:       cfg.RedisTLS,
			OpTimeout: cfg.CacheOpTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at start, serving from postgres until it recovers")
		} else {
			log.Info().Msg("connected to Redis")
		}
		c.Redis = rdb
		backend = redisclient.NewCache(rdb, redisclient.DefaultBreakerSettings(), log, m)

		if cfg.LeaseEnabled {
			c.Locker = redisclient.NewRedisCalendarLocker(rdb, cfg.LeaseTTL)
		}
	} else {
		log.Info().Msg("cache disabled")
	}

	ttl := cache.TTLs{
		Patient:        cfg.TTL.Patient,
		Doctor:         cfg.TTL.Doctor,
		Appointments:   cfg.TTL.Appointments,
		Available:      cfg.TTL.Available,
		Conflict:       cfg.TTL.Conflict,
		DoctorNotFound: cfg.TTL.DoctorNotFound,
	}

	c.Repo = appointment.NewPgRepository(pool)
	c.Policy = cache.NewPolicy(backend, ttl, cfg.CacheOpTimeout, log, m)
	c.Engine = appointment.NewEngine(c.Repo, c.Repo, c.Policy, cfg.StoreOpTimeout, log, m)
	c.Directory = appointment.NewDirectory(c.Repo, c.Policy, cfg.StoreOpTimeout, log)
	c.Ledger = appointment.NewLedger(c.Repo, cfg.LedgerMode, c.Policy, cfg.StoreOpTimeout, log, m)

	log.Info().
		Str("ledger_mode", string(cfg.LedgerMode)).
		Bool("cache", cfg.CacheEnabled).
		Bool("lease", c.Locker != nil).
		Msg("booking components ready")

	return c, nil
}

// RedisPing returns nil when the cache is disabled.
func (c *Components) RedisPing() func(ctx context.Context) error {
	if c.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
}

func (c *Components) Close() error {
	var err error
	if c.Redis != nil {
		if cerr := c.Redis.Close(); cerr != nil {
			err = fmt.Errorf("close redis: %w", cerr)
		}
	}
	c.Pool.Close()
	return err
}
