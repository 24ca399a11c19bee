package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

const (
	appointmentIDPrefix = "A"
	defaultStoreTimeout = 5 * time.Second
)

// NewAppointmentID returns "A" followed by 8 random hex characters.
func NewAppointmentID() string {
	return appointmentIDPrefix + uuid.NewString()[:8]
}

// Ledger is the only writer of appointment rows.
type Ledger struct {
	store        AppointmentWriter
	mode         config.LedgerMode
	cache        *cache.Policy
	storeTimeout time.Duration
	log          zerolog.Logger
	metrics      *metrics.Collector

	newID func() string
	now   func() time.Time
}

func NewLedger(store AppointmentWriter, mode config.LedgerMode, policy *cache.Policy, storeTimeout time.Duration, log zerolog.Logger, m *metrics.Collector) *Ledger {
	if mode == "" {
		mode = config.LedgerConditional
	}
	return &Ledger{
		store:        store,
		mode:         mode,
		cache:        policy,
		storeTimeout: orDefault(storeTimeout),
		log:          log.With().Str("component", "ledger").Str("mode", string(mode)).Logger(),
		metrics:      m,
		newID:        NewAppointmentID,
		now:          time.Now,
	}
}

func (l *Ledger) Mode() config.LedgerMode {
	return l.mode
}

// ConfirmBooking persists a Confirmed appointment. In conditional mode
// the write fails with ErrSlotConflict when an overlapping row exists at
// write time; in unconditional mode it upserts on the composite key.
func (l *Ledger) ConfirmBooking(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.AppointmentID)
	if id == "" {
		id = l.newID()
	}

	appt := Appointment{
		AppointmentID:   id,
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentDate: req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Status:          StatusConfirmed,
		CreatedAt:       l.now().UTC(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	var (
		stored *Appointment
		err    error
	)
	if l.mode == config.LedgerUnconditional {
		stored, err = l.store.PutAppointment(storeCtx, appt)
	} else {
		stored, err = l.store.InsertIfNoOverlap(storeCtx, appt)
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrSlotConflict):
			l.observe("conflict")
			l.log.Info().Str("doctor_id", appt.DoctorID).Str("date", appt.AppointmentDate).
				Str("requested", appt.StartTime+"-"+appt.EndTime).Msg("write rejected, slot taken")
			return nil, err
		case errors.Is(err, ErrAppointmentIDTaken):
			l.observe("id_taken")
			return nil, err
		default:
			l.observe("error")
			l.log.Error().Err(err).Str("appointment_id", appt.AppointmentID).Msg("appointment write failed")
			return nil, infra("write appointment", err)
		}
	}

	l.observe("created")

	// The calendar list and the exact slot decision are now stale.
	l.cache.Invalidate(ctx, cache.AppointmentsKey(stored.DoctorID, stored.AppointmentDate))
	l.cache.Invalidate(ctx, cache.AvailabilityKey(stored.DoctorID, stored.AppointmentDate, stored.StartTime, stored.EndTime))

	return stored, nil
}

func (l *Ledger) observe(outcome string) {
	if l.metrics == nil {
		return
	}
	l.metrics.LedgerWrites.WithLabelValues(string(l.mode), outcome).Inc()
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultStoreTimeout
	}
	return d
}
