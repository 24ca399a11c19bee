package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/appointment-booking-engine/internal/api"
	"github.com/hackgods/appointment-booking-engine/internal/app"
	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
	"github.com/hackgods/appointment-booking-engine/internal/notify"
	"github.com/hackgods/appointment-booking-engine/internal/steps"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", "api-server")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.Build(rootCtx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("close components")
		}
	}()

	// The broker is optional for the API: without it bookings still
	// succeed and the hand-off is skipped.
	var handoff appointment.HandOff
	pub, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.NotifyExchange)
	if err != nil {
		log.Warn().Err(err).Msg("notification broker unavailable, hand-off disabled")
	} else {
		defer pub.Close()
		handoff = notify.NewHandOff(pub, log, c.Metrics)
	}

	router := api.NewRouter(api.RouterConfig{
		Steps:   steps.NewRunner(c.Engine, c.Directory, c.Ledger, handoff, log),
		Booker:  appointment.NewBooker(c.Engine, c.Directory, c.Ledger, c.Locker, handoff, log, c.Metrics),
		Engine:  c.Engine,
		Health:  api.NewHealthHandler(c.Pool.Ping, c.RedisPing(), cfg.Env, version),
		Log:     log,
		Metrics: c.Metrics,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
