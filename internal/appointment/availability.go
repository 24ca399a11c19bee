package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

// Engine decides whether a slot can be booked. It reads appointments
// but never writes them.
type Engine struct {
	appointments AppointmentReader
	doctors      DoctorStore
	cache        *cache.Policy
	storeTimeout time.Duration
	log          zerolog.Logger
	metrics      *metrics.Collector
}

func NewEngine(appointments AppointmentReader, doctors DoctorStore, policy *cache.Policy, storeTimeout time.Duration, log zerolog.Logger, m *metrics.Collector) *Engine {
	return &Engine{
		appointments: appointments,
		doctors:      doctors,
		cache:        policy,
		storeTimeout: orDefault(storeTimeout),
		log:          log.With().Str("component", "availability").Logger(),
		metrics:      m,
	}
}

// CheckAvailability always reads the doctor's bookings for the date from
// the store, refreshes the cached list, and decides from the fresh rows.
// The doctor lookup only runs when there is no conflict. Store failures
// are returned, never treated as "no conflicts".
func (e *Engine) CheckAvailability(ctx context.Context, slot Slot) (Decision, error) {
	if err := slot.Validate(); err != nil {
		return Decision{}, err
	}

	existing, err := e.readAppointments(ctx, slot.DoctorID, slot.Date)
	if err != nil {
		return Decision{}, err
	}

	ttl := e.cache.TTL()
	e.cache.Store(ctx, cache.AppointmentsKey(slot.DoctorID, slot.Date), existing, ttl.Appointments)

	decisionKey := cache.AvailabilityKey(slot.DoctorID, slot.Date, slot.StartTime, slot.EndTime)

	if clash, found := FindConflict(slot, existing); found {
		e.log.Debug().
			Str("doctor_id", slot.DoctorID).
			Str("date", slot.Date).
			Str("requested", slot.StartTime+"-"+slot.EndTime).
			Str("existing_id", clash.AppointmentID).
			Str("existing", clash.StartTime+"-"+clash.EndTime).
			Msg("slot conflicts with existing appointment")

		d := Decision{Outcome: OutcomeConflict, ConflictWith: clash.AppointmentID}
		e.cache.Store(ctx, decisionKey, d, ttl.Conflict)
		e.observe(d)
		return d, nil
	}

	doctor, err := e.Doctor(ctx, slot.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			d := Decision{Outcome: OutcomeDoctorNotFound}
			e.cache.Store(ctx, decisionKey, d, ttl.DoctorNotFound)
			e.observe(d)
			return d, nil
		}
		return Decision{}, err
	}

	d := Decision{Outcome: OutcomeAvailable, Doctor: doctor}
	e.cache.Store(ctx, decisionKey, d, ttl.Available)
	e.observe(d)
	return d, nil
}

// Doctor resolves reference data cache-aside. Only found doctors are
// cached under the doctor key.
func (e *Engine) Doctor(ctx context.Context, doctorID string) (*Doctor, error) {
	key := cache.DoctorKey(doctorID)

	var cached Doctor
	if e.cache.Load(ctx, key, &cached) && cached.DoctorID == doctorID {
		return &cached, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	doctor, err := e.doctors.GetDoctor(storeCtx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, infra("get doctor", err)
	}

	e.cache.Store(ctx, key, doctor, e.cache.TTL().Doctor)
	return doctor, nil
}

// Peek returns the cached decision for slot, if any. It is for display
// and must not be used to admit a write.
func (e *Engine) Peek(ctx context.Context, slot Slot) (Decision, bool, error) {
	if err := slot.Validate(); err != nil {
		return Decision{}, false, err
	}

	var d Decision
	if e.cache.Load(ctx, cache.AvailabilityKey(slot.DoctorID, slot.Date, slot.StartTime, slot.EndTime), &d) {
		return d, true, nil
	}
	return Decision{}, false, nil
}

// Calendar lists a doctor's Confirmed appointments for date, served from
// the list cached by the last availability check when present.
func (e *Engine) Calendar(ctx context.Context, doctorID, date string) ([]Appointment, error) {
	if doctorID == "" {
		return nil, invalid("missing required field: DoctorID")
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	key := cache.AppointmentsKey(doctorID, date)

	var cached []Appointment
	if e.cache.Load(ctx, key, &cached) {
		return cached, nil
	}

	existing, err := e.readAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	e.cache.Store(ctx, key, existing, e.cache.TTL().Appointments)
	return existing, nil
}

func (e *Engine) readAppointments(ctx context.Context, doctorID, date string) ([]Appointment, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	existing, err := e.appointments.ListAppointments(storeCtx, doctorID, date)
	if err != nil {
		e.log.Error().Err(err).Str("doctor_id", doctorID).Str("date", date).Msg("appointment read failed")
		return nil, infra("list appointments", err)
	}
	if existing == nil {
		existing = []Appointment{}
	}
	return existing, nil
}

func (e *Engine) observe(d Decision) {
	if e.metrics == nil {
		return
	}
	e.metrics.Decisions.WithLabelValues(string(d.Outcome)).Inc()
}
