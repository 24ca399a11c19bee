package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

// HandOff publishes the two recipient messages for every confirmed
// booking. It satisfies appointment.HandOff.
type HandOff struct {
	pub     Publisher
	log     zerolog.Logger
	metrics *metrics.Collector
}

var _ appointment.HandOff = (*HandOff)(nil)

func NewHandOff(pub Publisher, log zerolog.Logger, m *metrics.Collector) *HandOff {
	return &HandOff{
		pub:     pub,
		log:     log.With().Str("component", "handoff").Logger(),
		metrics: m,
	}
}

func (h *HandOff) Dispatch(ctx context.Context, c appointment.Confirmation) error {
	return h.publish(ctx, BuildMessages(c, TypeNotification))
}

// Remind publishes Reminder messages for c.
func (h *HandOff) Remind(ctx context.Context, c appointment.Confirmation) error {
	return h.publish(ctx, BuildMessages(c, TypeReminder))
}

func (h *HandOff) publish(ctx context.Context, msgs []Message) error {
	var errs []error
	for _, m := range msgs {
		if err := h.pub.PublishJSON(ctx, m.RoutingKey(), m); err != nil {
			h.count(m.MessageType, "error")
			h.log.Error().Err(err).
				Str("recipient", string(m.RecipientType)).
				Str("patient_id", m.PatientID).
				Str("doctor_id", m.DoctorID).
				Msg("publish failed")
			errs = append(errs, fmt.Errorf("publish %s: %w", m.RoutingKey(), err))
			continue
		}
		h.count(m.MessageType, "published")
	}
	return errors.Join(errs...)
}

func (h *HandOff) count(typ MessageType, result string) {
	if h.metrics == nil {
		return
	}
	h.metrics.HandOffs.WithLabelValues(string(typ), result).Inc()
}
