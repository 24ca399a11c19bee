package appointment

import (
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Validate rejects missing or malformed slot fields.
func (s Slot) Validate() error {
	if strings.TrimSpace(s.DoctorID) == "" {
		return invalid("missing required field: DoctorID")
	}
	if err := validateDate(s.Date); err != nil {
		return err
	}
	if !isClock(s.StartTime) {
		return invalid("StartTime must be HH:MM, got %q", s.StartTime)
	}
	if !isClock(s.EndTime) {
		return invalid("EndTime must be HH:MM, got %q", s.EndTime)
	}
	if s.StartTime >= s.EndTime {
		return invalid("StartTime %s must be before EndTime %s", s.StartTime, s.EndTime)
	}
	return nil
}

func (r BookingRequest) Validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return invalid("missing required field: PatientID")
	}
	return r.Slot.Validate()
}

func validateDate(date string) error {
	if date == "" {
		return invalid("missing required field: AppointmentDate")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return invalid("AppointmentDate must be YYYY-MM-DD, got %q", date)
	}
	return nil
}

// isClock requires the zero-padded form so lexical order is time order.
func isClock(v string) bool {
	if len(v) != len(timeLayout) {
		return false
	}
	_, err := time.Parse(timeLayout, v)
	return err == nil
}

// Overlaps reports whether [s1,e1] and [s2,e2] conflict. Bounds are
// inclusive at both ends: an interval starting exactly when another
// ends is a conflict.
func Overlaps(s1, e1, s2, e2 string) bool {
	return (s1 <= s2 && s2 <= e1) || (s2 <= s1 && s1 <= e2)
}

// FindConflict returns the first Confirmed appointment overlapping slot.
func FindConflict(slot Slot, existing []Appointment) (Appointment, bool) {
	for _, a := range existing {
		if a.Status != "" && a.Status != StatusConfirmed {
			continue
		}
		if Overlaps(slot.StartTime, slot.EndTime, a.StartTime, a.EndTime) {
			return a, true
		}
	}
	return Appointment{}, false
}
