package appointment

import (
	"strings"
	"time"
)

type AppointmentStatus string

// StatusConfirmed is the only status this engine produces.
const StatusConfirmed AppointmentStatus = "Confirmed"

// Outcome is the result of an availability check.
type Outcome string

const (
	OutcomeAvailable      Outcome = "Available"
	OutcomeConflict       Outcome = "Conflict"
	OutcomeDoctorNotFound Outcome = "DoctorNotFound"
)

// JSON names follow the step contract so cached payloads and step
// outputs share one shape.

type Patient struct {
	PatientID string `json:"PatientID"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Doctor struct {
	DoctorID  string `json:"DoctorID"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
}

func (d Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Appointment is keyed by (AppointmentID, DoctorID).
type Appointment struct {
	AppointmentID   string            `json:"AppointmentID"`
	DoctorID        string            `json:"DoctorID"`
	PatientID       string            `json:"PatientID"`
	AppointmentDate string            `json:"AppointmentDate"`
	StartTime       string            `json:"StartTime"`
	EndTime         string            `json:"EndTime"`
	Status          AppointmentStatus `json:"AppointmentStatus"`
	CreatedAt       time.Time         `json:"CreatedAt"`
}

// Slot is a doctor/date/time-interval tuple being checked or booked.
// Times are same-day "HH:MM" strings and compare lexically.
type Slot struct {
	DoctorID  string
	Date      string
	StartTime string
	EndTime   string
}

// Decision is a derived, disposable availability result.
type Decision struct {
	Outcome      Outcome `json:"outcome"`
	Doctor       *Doctor `json:"doctor,omitempty"`
	ConflictWith string  `json:"conflictWith,omitempty"`
}

type BookingRequest struct {
	AppointmentID string // optional, generated when empty
	PatientID     string
	Slot
}

// Confirmation is what a completed booking hands to notification.
type Confirmation struct {
	Appointment Appointment
	Patient     Patient
	Doctor      Doctor
}
