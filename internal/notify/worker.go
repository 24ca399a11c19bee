package notify

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

// Worker renders hand-off messages and forwards them to the outbound
// exchange.
type Worker struct {
	out     Publisher
	log     zerolog.Logger
	metrics *metrics.Collector
}

func NewWorker(out Publisher, log zerolog.Logger, m *metrics.Collector) *Worker {
	return &Worker{
		out:     out,
		log:     log.With().Str("component", "notification-worker").Logger(),
		metrics: m,
	}
}

// Run handles deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle acks, nacks or requeues one delivery.
//
//   - undecodable payloads and unknown types are dropped (nack, no requeue)
//     or skipped (ack), they will never succeed on retry
//   - an outbound publish failure is requeued
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var m Message
	if err := json.Unmarshal(d.Body, &m); err != nil {
		w.log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("malformed message dropped")
		w.count("unknown", "malformed")
		_ = d.Nack(false, false)
		return
	}

	out, err := Render(m)
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			w.log.Warn().Str("message_type", string(m.MessageType)).Str("recipient", string(m.RecipientType)).Msg("skip unknown message")
			w.count(m.MessageType, "skipped")
			_ = d.Ack(false)
			return
		}
		w.log.Error().Err(err).Msg("render failed")
		w.count(m.MessageType, "render_failed")
		_ = d.Nack(false, false)
		return
	}

	if err := w.out.PublishJSON(ctx, out.RoutingKey(), out); err != nil {
		w.log.Error().Err(err).Str("routing_key", out.RoutingKey()).Msg("outbound publish failed, requeue")
		w.count(m.MessageType, "requeued")
		_ = d.Nack(false, true)
		return
	}

	w.log.Info().
		Str("recipient", string(m.RecipientType)).
		Str("message_type", string(m.MessageType)).
		Str("date", m.AppointmentDate).
		Msg("sent")
	w.count(m.MessageType, "sent")
	_ = d.Ack(false)
}

func (w *Worker) count(typ MessageType, result string) {
	if w.metrics == nil {
		return
	}
	w.metrics.HandOffs.WithLabelValues(string(typ), result).Inc()
}
