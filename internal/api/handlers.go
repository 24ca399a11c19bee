package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/steps"
)

func stepHandler(runner *steps.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in steps.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		out, err := runner.Run(r.Context(), chi.URLParam(r, "step"), in)
		if err != nil {
			if errors.Is(err, steps.ErrUnknownStep) {
				writeError(w, http.StatusNotFound, "unknown_step", "step must be one of "+strings.Join(steps.Names, ", "))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "step failed")
			return
		}

		writeJSON(w, out.StatusCode, out)
	}
}

func createBookingHandler(booker *appointment.Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		conf, err := booker.Book(r.Context(), req.toDomain())
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Message:     "Appointment confirmed successfully",
			Appointment: conf.Appointment,
			Patient:     conf.Patient,
			Doctor:      conf.Doctor,
		})
	}
}

func calendarHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "doctorID")
		date := r.URL.Query().Get("date")

		appts, err := engine.Calendar(r.Context(), doctorID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CalendarResponse{DoctorID: doctorID, Date: date, Appointments: appts})
	}
}

// availabilityHandler serves the cached decision when there is one and
// runs a fresh check otherwise. It never admits a booking.
func availabilityHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		slot := appointment.Slot{
			DoctorID:  chi.URLParam(r, "doctorID"),
			Date:      q.Get("date"),
			StartTime: q.Get("start"),
			EndTime:   q.Get("end"),
		}

		d, cached, err := engine.Peek(r.Context(), slot)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		if !cached {
			d, err = engine.CheckAvailability(r.Context(), slot)
			if err != nil {
				handleBookingError(w, err)
				return
			}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			DoctorID:     slot.DoctorID,
			Date:         slot.Date,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
			Outcome:      d.Outcome,
			Doctor:       d.Doctor,
			ConflictWith: d.ConflictWith,
			Cached:       cached,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	status := steps.StatusFor(err)

	switch {
	case errors.Is(err, appointment.ErrInvalidRequest):
		writeError(w, status, "invalid_request", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, status, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, status, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentIDTaken):
		writeError(w, status, "appointment_id_taken", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, status, "slot_conflict", appointment.ErrSlotConflict.Error())
	default:
		// The cause was logged where it happened.
		writeError(w, status, "internal_error", "booking could not be completed, please retry")
	}
}
