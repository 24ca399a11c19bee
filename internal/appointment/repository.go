package appointment

import "context"

// AppointmentReader serves the conflict read. Only Confirmed rows are
// returned.
type AppointmentReader interface {
	ListAppointments(ctx context.Context, doctorID, date string) ([]Appointment, error)
}

type DoctorStore interface {
	GetDoctor(ctx context.Context, doctorID string) (*Doctor, error)
}

type PatientStore interface {
	GetPatient(ctx context.Context, patientID string) (*Patient, error)
}

// AppointmentWriter is owned by the Ledger; nothing else writes rows.
type AppointmentWriter interface {
	// PutAppointment upserts on (AppointmentID, DoctorID) with no
	// overlap check.
	PutAppointment(ctx context.Context, a Appointment) (*Appointment, error)

	// InsertIfNoOverlap inserts a only if no Confirmed row for the same
	// doctor and date overlaps it, atomically with the check. A row with
	// the same key and attributes is returned as is; one with the same
	// key and other attributes yields ErrAppointmentIDTaken.
	InsertIfNoOverlap(ctx context.Context, a Appointment) (*Appointment, error)
}

// DaySchedule lists every Confirmed appointment on a date, for reminders.
type DaySchedule interface {
	ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error)
}

// Repository contains all DB interactions needed by the engine.
type Repository interface {
	AppointmentReader
	DoctorStore
	PatientStore
	AppointmentWriter
	DaySchedule
}
