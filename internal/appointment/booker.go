package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/metrics"
	redisclient "github.com/hackgods/appointment-booking-engine/internal/redis"
)

// HandOff receives every confirmed booking for notification.
type HandOff interface {
	Dispatch(ctx context.Context, c Confirmation) error
}

const (
	defaultLeaseWait = 2 * time.Second
	leaseBackoffMin  = 10 * time.Millisecond
	leaseBackoffMax  = 200 * time.Millisecond
)

// Booker runs check, verify and confirm in order for one request and
// hands the result to notification. Each step consumes the previous
// step's output rather than re-reading it.
type Booker struct {
	engine    *Engine
	directory *Directory
	ledger    *Ledger
	locker    redisclient.Locker
	handoff   HandOff
	log       zerolog.Logger
	metrics   *metrics.Collector

	// leaseWait bounds how long a request queues behind a held lease
	// before it proceeds on the conditional write alone.
	leaseWait time.Duration
}

// NewBooker wires the steps. locker and handoff may be nil.
func NewBooker(engine *Engine, directory *Directory, ledger *Ledger, locker redisclient.Locker, handoff HandOff, log zerolog.Logger, m *metrics.Collector) *Booker {
	return &Booker{
		engine:    engine,
		directory: directory,
		ledger:    ledger,
		locker:    locker,
		handoff:   handoff,
		log:       log.With().Str("component", "booker").Logger(),
		metrics:   m,
		leaseWait: defaultLeaseWait,
	}
}

func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		conf     *Confirmation
		replayed bool
	)
	run := func(ctx context.Context) error {
		c, r, err := b.book(ctx, req)
		conf, replayed = c, r
		return err
	}

	if err := b.withLease(ctx, req.Slot, run); err != nil {
		return nil, err
	}

	// A replay was already handed off when it was first confirmed.
	if b.handoff != nil && !replayed {
		if err := b.handoff.Dispatch(ctx, *conf); err != nil {
			// The booking stands; notification is retried downstream.
			b.log.Error().Err(err).Str("appointment_id", conf.Appointment.AppointmentID).Msg("notification hand-off failed")
		}
	}

	return conf, nil
}

func (b *Booker) book(ctx context.Context, req BookingRequest) (*Confirmation, bool, error) {
	decision, err := b.engine.CheckAvailability(ctx, req.Slot)
	if err != nil {
		return nil, false, err
	}

	var doctor *Doctor
	replay := false
	switch decision.Outcome {
	case OutcomeConflict:
		// The only clash is the caller's own row: let the ledger decide
		// whether this is a replay or a reused id.
		id := strings.TrimSpace(req.AppointmentID)
		if id == "" || decision.ConflictWith != id {
			return nil, false, ErrSlotConflict
		}
		replay = true
		if doctor, err = b.engine.Doctor(ctx, req.DoctorID); err != nil {
			return nil, false, err
		}
	case OutcomeDoctorNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrDoctorNotFound, req.DoctorID)
	case OutcomeAvailable:
		doctor = decision.Doctor
	default:
		return nil, false, fmt.Errorf("%w: unknown availability outcome %q", ErrInvariantViolation, decision.Outcome)
	}

	patient, err := b.directory.VerifyPatient(ctx, req.PatientID)
	if err != nil {
		return nil, false, err
	}

	appt, err := b.ledger.ConfirmBooking(ctx, req)
	if err != nil {
		return nil, false, err
	}

	return &Confirmation{
		Appointment: *appt,
		Patient:     *patient,
		Doctor:      *doctor,
	}, replay, nil
}

// withLease runs fn under the calendar lease. A held lease is waited on
// with backoff for at most leaseWait; after that, or when the lock
// backend cannot be reached, fn runs without the lease and the ledger's
// conditional write holds the invariant on its own.
func (b *Booker) withLease(ctx context.Context, slot Slot, fn func(ctx context.Context) error) error {
	if b.locker == nil {
		return fn(ctx)
	}

	ran := false
	guarded := func(ctx context.Context) error {
		ran = true
		return fn(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.leaseWait)
	defer cancel()

	log := b.log.With().Str("doctor_id", slot.DoctorID).Str("date", slot.Date).Logger()
	backoff := leaseBackoffMin
	for {
		err := b.locker.WithCalendarLock(ctx, slot.DoctorID, slot.Date, guarded)
		if ran {
			b.leaseResult("acquired")
			return err
		}
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			b.leaseResult("unavailable")
			log.Warn().Err(err).Msg("calendar lease unavailable, relying on conditional write")
			return fn(ctx)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			b.leaseResult("wait_exceeded")
			log.Warn().Dur("waited", b.leaseWait).Msg("calendar lease still held, relying on conditional write")
			return fn(ctx)
		case <-timer.C:
		}
		backoff = min(backoff*2, leaseBackoffMax)
	}
}

func (b *Booker) leaseResult(result string) {
	if b.metrics == nil {
		return
	}
	b.metrics.LeaseResults.WithLabelValues(result).Inc()
}
