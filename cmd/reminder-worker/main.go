package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/appointment-booking-engine/internal/app"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
	"github.com/hackgods/appointment-booking-engine/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", "reminder-worker")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, "reminder-worker")
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.ReminderEvery).Msg("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.Build(rootCtx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer c.Close()

	pub, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.NotifyExchange)
	if err != nil {
		log.Fatal().Err(err).Msg("notification broker unavailable")
	}
	defer pub.Close()

	reminder := notify.NewReminder(c.Repo, c.Directory, c.Engine, notify.NewHandOff(pub, log, c.Metrics), cfg.StoreOpTimeout, log)
	reminder.Run(rootCtx, cfg.ReminderEvery)
}
