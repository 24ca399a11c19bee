// Package steps exposes each booking stage behind the flat mapping the
// workflow orchestrator passes between states.
package steps

import (
	"github.com/hackgods/appointment-booking-engine/internal/appointment"
)

const (
	CheckAvailability = "check-availability"
	VerifyPatient     = "verify-patient"
	ConfirmBooking    = "confirm-booking"
	Notify            = "notify"
)

// Names lists every step in execution order.
var Names = []string{CheckAvailability, VerifyPatient, ConfirmBooking, Notify}

// Input is the state document. Later steps find the earlier results
// under verifyResult and availabilityResult.
type Input struct {
	AppointmentID   string `json:"AppointmentID,omitempty"`
	PatientID       string `json:"PatientID"`
	DoctorID        string `json:"DoctorID"`
	AppointmentDate string `json:"AppointmentDate"`
	StartTime       string `json:"StartTime"`
	EndTime         string `json:"EndTime"`

	VerifyResult       *Output `json:"verifyResult,omitempty"`
	AvailabilityResult *Output `json:"availabilityResult,omitempty"`
}

func (in Input) slot() appointment.Slot {
	return appointment.Slot{
		DoctorID:  in.DoctorID,
		Date:      in.AppointmentDate,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}
}

func (in Input) booking() appointment.BookingRequest {
	return appointment.BookingRequest{
		AppointmentID: in.AppointmentID,
		PatientID:     in.PatientID,
		Slot:          in.slot(),
	}
}

type Output struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`

	DoctorDetails      *appointment.Doctor  `json:"doctorDetails,omitempty"`
	PatientDetails     *appointment.Patient `json:"patientDetails,omitempty"`
	AppointmentDetails *AppointmentDetails  `json:"appointmentDetails,omitempty"`
}

// OK reports a 2xx status.
func (o Output) OK() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

type AppointmentDetails struct {
	AppointmentID     string `json:"AppointmentID"`
	PatientID         string `json:"PatientID"`
	DoctorID          string `json:"DoctorID"`
	AppointmentDate   string `json:"AppointmentDate"`
	StartTime         string `json:"StartTime"`
	EndTime           string `json:"EndTime"`
	AppointmentStatus string `json:"AppointmentStatus"`
}

func detailsOf(a appointment.Appointment) *AppointmentDetails {
	return &AppointmentDetails{
		AppointmentID:     a.AppointmentID,
		PatientID:         a.PatientID,
		DoctorID:          a.DoctorID,
		AppointmentDate:   a.AppointmentDate,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		AppointmentStatus: string(a.Status),
	}
}
