package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
	"github.com/hackgods/appointment-booking-engine/internal/notify"
)

// bindings cover both recipients of every message type the hand-off emits.
var bindings = []string{"notification.*", "reminder.*"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", "notification-worker")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, "notification-worker")
	log.Info().Str("env", cfg.Env).Str("queue", cfg.NotifyQueue).Msg("notification-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := notify.NewAMQPConsumer(notify.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.NotifyExchange,
		Queue:    cfg.NotifyQueue,
		Bindings: bindings,
		Tag:      "notification-worker",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("consumer setup failed")
	}
	defer consumer.Close()

	out, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.OutboundExchange)
	if err != nil {
		log.Fatal().Err(err).Msg("outbound publisher setup failed")
	}
	defer out.Close()

	deliveries, err := consumer.Deliveries(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("consume failed")
	}

	w := notify.NewWorker(out, log, metrics.NewCollector(prometheus.DefaultRegisterer))
	if err := w.Run(rootCtx, deliveries); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("notification-worker stopped")
}
