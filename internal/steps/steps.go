package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
)

var ErrUnknownStep = errors.New("unknown step")

// Runner executes single steps against the booking components.
type Runner struct {
	engine    *appointment.Engine
	directory *appointment.Directory
	ledger    *appointment.Ledger
	handoff   appointment.HandOff
	log       zerolog.Logger
}

// NewRunner wires the steps. handoff may be nil, in which case the
// notify step reports 500.
func NewRunner(engine *appointment.Engine, directory *appointment.Directory, ledger *appointment.Ledger, handoff appointment.HandOff, log zerolog.Logger) *Runner {
	return &Runner{
		engine:    engine,
		directory: directory,
		ledger:    ledger,
		handoff:   handoff,
		log:       log.With().Str("component", "steps").Logger(),
	}
}

// Run dispatches to the step called name.
func (r *Runner) Run(ctx context.Context, name string, in Input) (Output, error) {
	switch name {
	case CheckAvailability:
		return r.CheckAvailability(ctx, in), nil
	case VerifyPatient:
		return r.VerifyPatient(ctx, in), nil
	case ConfirmBooking:
		return r.ConfirmBooking(ctx, in), nil
	case Notify:
		return r.Notify(ctx, in), nil
	default:
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
}

func (r *Runner) CheckAvailability(ctx context.Context, in Input) Output {
	d, err := r.engine.CheckAvailability(ctx, in.slot())
	if err != nil {
		return r.failure(err, "Error checking doctor availability", in)
	}

	switch d.Outcome {
	case appointment.OutcomeAvailable:
		return Output{StatusCode: http.StatusOK, Body: "Doctor is available", DoctorDetails: d.Doctor}
	case appointment.OutcomeConflict:
		return Output{StatusCode: http.StatusConflict, Body: "Doctor is not available at the requested time"}
	case appointment.OutcomeDoctorNotFound:
		return Output{StatusCode: http.StatusNotFound, Body: fmt.Sprintf("Doctor with ID %s not found", in.DoctorID)}
	default:
		err := fmt.Errorf("%w: unknown outcome %q", appointment.ErrInvariantViolation, d.Outcome)
		return r.failure(err, "Error checking doctor availability", in)
	}
}

func (r *Runner) VerifyPatient(ctx context.Context, in Input) Output {
	p, err := r.directory.VerifyPatient(ctx, in.PatientID)
	if err != nil {
		return r.failure(err, "Error verifying patient", in)
	}
	return Output{StatusCode: http.StatusOK, Body: "Patient verified successfully", PatientDetails: p}
}

func (r *Runner) ConfirmBooking(ctx context.Context, in Input) Output {
	a, err := r.ledger.ConfirmBooking(ctx, in.booking())
	if err != nil {
		return r.failure(err, "Error confirming appointment", in)
	}
	return Output{StatusCode: http.StatusCreated, Body: "Appointment confirmed successfully", AppointmentDetails: detailsOf(*a)}
}

// Notify needs the patient and doctor details produced by the verify
// and availability steps.
func (r *Runner) Notify(ctx context.Context, in Input) Output {
	if r.handoff == nil {
		r.log.Error().Msg("notify step called without a hand-off")
		return Output{StatusCode: http.StatusInternalServerError, Body: "Error queueing notifications"}
	}
	if in.VerifyResult == nil || in.VerifyResult.PatientDetails == nil ||
		in.AvailabilityResult == nil || in.AvailabilityResult.DoctorDetails == nil {
		return Output{StatusCode: http.StatusBadRequest, Body: "missing required field: verifyResult.patientDetails or availabilityResult.doctorDetails"}
	}

	conf := appointment.Confirmation{
		Appointment: appointment.Appointment{
			AppointmentID:   in.AppointmentID,
			DoctorID:        in.DoctorID,
			PatientID:       in.PatientID,
			AppointmentDate: in.AppointmentDate,
			StartTime:       in.StartTime,
			EndTime:         in.EndTime,
			Status:          appointment.StatusConfirmed,
		},
		Patient: *in.VerifyResult.PatientDetails,
		Doctor:  *in.AvailabilityResult.DoctorDetails,
	}

	if err := r.handoff.Dispatch(ctx, conf); err != nil {
		r.log.Error().Err(err).Str("patient_id", in.PatientID).Str("doctor_id", in.DoctorID).Msg("notify failed")
		return Output{StatusCode: http.StatusInternalServerError, Body: "Error queueing notifications"}
	}
	return Output{StatusCode: http.StatusOK, Body: "Notifications queued successfully"}
}

// failure maps err to a status and a message safe to show callers.
// Infrastructure and invariant errors are logged and hidden behind
// fallback.
func (r *Runner) failure(err error, fallback string, in Input) Output {
	status := StatusFor(err)

	switch appointment.KindOf(err) {
	case appointment.KindClient:
		return Output{StatusCode: status, Body: clientMessage(err, in)}
	case appointment.KindConflict:
		return Output{StatusCode: status, Body: "Doctor is not available at the requested time"}
	default:
		r.log.Error().Err(err).
			Str("doctor_id", in.DoctorID).
			Str("patient_id", in.PatientID).
			Str("date", in.AppointmentDate).
			Msg(fallback)
		return Output{StatusCode: status, Body: fallback}
	}
}

func clientMessage(err error, in Input) string {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		return fmt.Sprintf("Doctor with ID %s not found", in.DoctorID)
	case errors.Is(err, appointment.ErrPatientNotFound):
		return fmt.Sprintf("Patient with ID %s not found", in.PatientID)
	case errors.Is(err, appointment.ErrAppointmentIDTaken):
		return appointment.ErrAppointmentIDTaken.Error()
	default:
		// invalid request: "invalid request: <what>"
		return strings.TrimPrefix(err.Error(), appointment.ErrInvalidRequest.Error()+": ")
	}
}

// StatusFor maps an error from the booking components to an HTTP-style
// status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, appointment.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, appointment.ErrDoctorNotFound),
		errors.Is(err, appointment.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, appointment.ErrAppointmentIDTaken):
		return http.StatusConflict
	}

	switch appointment.KindOf(err) {
	case appointment.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
