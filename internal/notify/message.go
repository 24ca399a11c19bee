// Package notify turns confirmed bookings into recipient-typed messages,
// renders them and moves them across the broker.
package notify

import (
	"fmt"
	"strings"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
)

type RecipientType string

const (
	RecipientPatient RecipientType = "patient"
	RecipientDoctor  RecipientType = "doctor"
)

type MessageType string

const (
	TypeNotification MessageType = "Notification"
	TypeReminder     MessageType = "Reminder"
)

// Message is the hand-off payload. One booking yields one per recipient.
type Message struct {
	PatientID       string        `json:"PatientID"`
	PatientName     string        `json:"PatientName"`
	DoctorID        string        `json:"DoctorID"`
	DoctorName      string        `json:"DoctorName"`
	AppointmentDate string        `json:"AppointmentDate"`
	StartTime       string        `json:"StartTime"`
	RecipientType   RecipientType `json:"RecipientType"`
	MessageType     MessageType   `json:"MessageType"`
}

// RoutingKey is "notification.patient", "reminder.doctor" and so on.
func (m Message) RoutingKey() string {
	return fmt.Sprintf("%s.%s", strings.ToLower(string(m.MessageType)), m.RecipientType)
}

// BuildMessages returns the patient message followed by the doctor
// message for one booking.
func BuildMessages(c appointment.Confirmation, typ MessageType) []Message {
	base := Message{
		PatientID:       c.Appointment.PatientID,
		PatientName:     c.Patient.FullName(),
		DoctorID:        c.Appointment.DoctorID,
		DoctorName:      c.Doctor.FullName(),
		AppointmentDate: c.Appointment.AppointmentDate,
		StartTime:       c.Appointment.StartTime,
		MessageType:     typ,
	}

	patient := base
	patient.RecipientType = RecipientPatient
	doctor := base
	doctor.RecipientType = RecipientDoctor

	return []Message{patient, doctor}
}
