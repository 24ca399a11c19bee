package cache

import (
	"fmt"
	"strings"
)

const (
	FamilyDoctor       = "doctor"
	FamilyAppointments = "appointments"
	FamilyAvailability = "availability"
	FamilyPatient      = "patient"
)

func DoctorKey(doctorID string) string {
	return fmt.Sprintf("%s:%s", FamilyDoctor, doctorID)
}

func AppointmentsKey(doctorID, date string) string {
	return fmt.Sprintf("%s:%s:%s", FamilyAppointments, doctorID, date)
}

func AvailabilityKey(doctorID, date, start, end string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", FamilyAvailability, doctorID, date, start, end)
}

func PatientKey(patientID string) string {
	return fmt.Sprintf("%s:%s", FamilyPatient, patientID)
}

// family returns the template prefix of key, used as a metrics label.
func family(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
