package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
)

// Reminder sends Reminder messages for the next day's appointments.
// Each appointment is reminded once per process, however often it runs.
type Reminder struct {
	schedule     appointment.DaySchedule
	directory    *appointment.Directory
	doctors      *appointment.Engine
	handoff      *HandOff
	storeTimeout time.Duration
	log          zerolog.Logger
	now          func() time.Time

	// sent holds the appointments already reminded for sentDate.
	sentDate string
	sent     map[string]struct{}
}

func NewReminder(schedule appointment.DaySchedule, directory *appointment.Directory, doctors *appointment.Engine, handoff *HandOff, storeTimeout time.Duration, log zerolog.Logger) *Reminder {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Reminder{
		schedule:     schedule,
		directory:    directory,
		doctors:      doctors,
		handoff:      handoff,
		storeTimeout: storeTimeout,
		log:          log.With().Str("component", "reminder").Logger(),
		now:          time.Now,
		sent:         make(map[string]struct{}),
	}
}

// RunOnce reminds every party of tomorrow's appointments not yet
// reminded and returns how many it reminded. A failure for one
// appointment is logged, does not stop the rest, and is retried on the
// next run.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	tomorrow := r.now().AddDate(0, 0, 1).Format("2006-01-02")
	if tomorrow != r.sentDate {
		r.sentDate = tomorrow
		clear(r.sent)
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	appts, err := r.schedule.ListAppointmentsByDate(storeCtx, tomorrow)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list appointments for %s: %w", tomorrow, err)
	}

	r.log.Info().Str("date", tomorrow).Int("appointments", len(appts)).Msg("sending reminders")

	sent := 0
	for _, a := range appts {
		key := a.AppointmentID + "|" + a.DoctorID
		if _, done := r.sent[key]; done {
			continue
		}
		log := r.log.With().Str("appointment_id", a.AppointmentID).Logger()

		patient, err := r.directory.VerifyPatient(ctx, a.PatientID)
		if err != nil {
			log.Warn().Err(err).Str("patient_id", a.PatientID).Msg("skip reminder, patient lookup failed")
			continue
		}
		doctor, err := r.doctors.Doctor(ctx, a.DoctorID)
		if err != nil {
			log.Warn().Err(err).Str("doctor_id", a.DoctorID).Msg("skip reminder, doctor lookup failed")
			continue
		}

		conf := appointment.Confirmation{Appointment: a, Patient: *patient, Doctor: *doctor}
		if err := r.handoff.Remind(ctx, conf); err != nil {
			log.Error().Err(err).Msg("reminder publish failed")
			continue
		}
		r.sent[key] = struct{}{}
		sent++
	}

	return sent, nil
}

// Run calls RunOnce immediately and then every interval until ctx ends.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		start := time.Now()
		n, err := r.RunOnce(runCtx)
		if err != nil {
			r.log.Error().Err(err).Msg("reminder run failed")
			return
		}
		r.log.Info().Int("reminded", n).Dur("took", time.Since(start)).Msg("reminder run complete")
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reminder worker stopping")
			return
		case <-ticker.C:
			run()
		}
	}
}
