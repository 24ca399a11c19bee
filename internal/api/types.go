package api

import (
	"github.com/hackgods/appointment-booking-engine/internal/appointment"
)

type CreateBookingRequest struct {
	AppointmentID   string `json:"AppointmentID,omitempty"`
	PatientID       string `json:"PatientID"`
	DoctorID        string `json:"DoctorID"`
	AppointmentDate string `json:"AppointmentDate"`
	StartTime       string `json:"StartTime"`
	EndTime         string `json:"EndTime"`
}

func (r CreateBookingRequest) toDomain() appointment.BookingRequest {
	return appointment.BookingRequest{
		AppointmentID: r.AppointmentID,
		PatientID:     r.PatientID,
		Slot: appointment.Slot{
			DoctorID:  r.DoctorID,
			Date:      r.AppointmentDate,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		},
	}
}

type BookingResponse struct {
	Message     string                  `json:"message"`
	Appointment appointment.Appointment `json:"appointment"`
	Patient     appointment.Patient     `json:"patient"`
	Doctor      appointment.Doctor      `json:"doctor"`
}

type CalendarResponse struct {
	DoctorID     string                    `json:"doctorId"`
	Date         string                    `json:"date"`
	Appointments []appointment.Appointment `json:"appointments"`
}

type AvailabilityResponse struct {
	DoctorID     string              `json:"doctorId"`
	Date         string              `json:"date"`
	StartTime    string              `json:"startTime"`
	EndTime      string              `json:"endTime"`
	Outcome      appointment.Outcome `json:"outcome"`
	Doctor       *appointment.Doctor `json:"doctor,omitempty"`
	ConflictWith string              `json:"conflictWith,omitempty"`
	Cached       bool                `json:"cached"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
