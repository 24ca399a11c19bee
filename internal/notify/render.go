package notify

import (
	"errors"
	"fmt"
)

var ErrUnknownMessage = errors.New("unknown message type or recipient")

// Outbound is what leaves the system towards email or SMS delivery.
type Outbound struct {
	RecipientType   RecipientType `json:"recipientType"`
	MessageType     MessageType   `json:"messageType"`
	PatientID       string        `json:"patientId"`
	DoctorID        string        `json:"doctorId"`
	AppointmentDate string        `json:"appointmentDate"`
	Subject         string        `json:"subject"`
	Body            string        `json:"body"`
}

// RoutingKey is "outbound.patient" or "outbound.doctor".
func (o Outbound) RoutingKey() string {
	return "outbound." + string(o.RecipientType)
}

// Render builds the subject and body for m. Missing names fall back to
// "Patient" and "Doctor", a missing start time to "00:00".
func Render(m Message) (Outbound, error) {
	patient := orElse(m.PatientName, "Patient")
	doctor := orElse(m.DoctorName, "Doctor")
	start := orElse(m.StartTime, "00:00")
	date := m.AppointmentDate

	out := Outbound{
		RecipientType:   m.RecipientType,
		MessageType:     m.MessageType,
		PatientID:       m.PatientID,
		DoctorID:        m.DoctorID,
		AppointmentDate: date,
	}

	switch {
	case m.MessageType == TypeNotification && m.RecipientType == RecipientPatient:
		out.Subject = fmt.Sprintf("Appointment Confirmation for %s", date)
		out.Body = fmt.Sprintf("Dear %s,\n\nYour appointment with %s has been confirmed for %s at %s.\n\nPlease arrive 15 minutes early and bring your insurance card.",
			patient, doctor, date, start)
	case m.MessageType == TypeNotification && m.RecipientType == RecipientDoctor:
		out.Subject = fmt.Sprintf("New Appointment: %s on %s", patient, date)
		out.Body = fmt.Sprintf("Dear %s,\n\nA new appointment has been scheduled with %s on %s at %s.\n\nPlease review patient details in your system.",
			doctor, patient, date, start)
	case m.MessageType == TypeReminder && m.RecipientType == RecipientPatient:
		out.Subject = "Appointment Reminder for Tomorrow"
		out.Body = fmt.Sprintf("Dear %s,\n\nThis is a reminder about your appointment with %s tomorrow (%s) at %s.",
			patient, doctor, date, start)
	case m.MessageType == TypeReminder && m.RecipientType == RecipientDoctor:
		out.Subject = fmt.Sprintf("Appointment Reminder: %s Tomorrow", patient)
		out.Body = fmt.Sprintf("Dear %s,\n\nThis is a reminder about your appointment with %s tomorrow (%s) at %s.",
			doctor, patient, date, start)
	default:
		return Outbound{}, fmt.Errorf("%w: %s/%s", ErrUnknownMessage, m.MessageType, m.RecipientType)
	}

	return out, nil
}

func orElse(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
