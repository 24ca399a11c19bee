package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const appointmentColumns = `appointment_id, doctor_id, patient_id, appointment_date, start_time, end_time, status, created_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(&p.PatientID, &p.FirstName, &p.LastName, &p.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(&d.DoctorID, &d.FirstName, &d.LastName, &d.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.AppointmentID,
		&a.DoctorID,
		&a.PatientID,
		&a.AppointmentDate,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT patient_id, first_name, last_name, email
		FROM patients
		WHERE patient_id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doctor_id, first_name, last_name, email
		FROM doctors
		WHERE doctor_id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, doctorID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status = 'Confirmed'
		ORDER BY start_time COLLATE "C"
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1
		  AND status = 'Confirmed'
		ORDER BY doctor_id, start_time COLLATE "C"
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) PutAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id, doctor_id) DO UPDATE
		SET patient_id       = EXCLUDED.patient_id,
		    appointment_date = EXCLUDED.appointment_date,
		    start_time       = EXCLUDED.start_time,
		    end_time         = EXCLUDED.end_time,
		    status           = EXCLUDED.status,
		    created_at       = EXCLUDED.created_at
		RETURNING `+appointmentColumns,
		a.AppointmentID, a.DoctorID, a.PatientID, a.AppointmentDate, a.StartTime, a.EndTime, a.Status, a.CreatedAt)

	return scanAppointment(row)
}

// InsertIfNoOverlap serialises writers per (doctor, date) with a
// transaction-scoped advisory lock, then re-runs the overlap predicate
// before inserting.
func (r *PgRepository) InsertIfNoOverlap(ctx context.Context, a Appointment) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, calendarLockKey(a.DoctorID, a.AppointmentDate)); err != nil {
		return nil, fmt.Errorf("lock calendar: %w", err)
	}

	existing, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1 AND doctor_id = $2
	`, a.AppointmentID, a.DoctorID))
	switch {
	case err == nil:
		if sameBooking(*existing, a) {
			return existing, nil
		}
		return nil, ErrAppointmentIDTaken
	case !errors.Is(err, ErrAppointmentNotFound):
		return nil, fmt.Errorf("load existing appointment: %w", err)
	}

	// s1 <= e2 AND s2 <= e1 is the inclusive overlap test for ordered intervals.
	var clashID string
	err = tx.QueryRow(ctx, `
		SELECT appointment_id
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status = 'Confirmed'
		  AND start_time COLLATE "C" <= $4
		  AND $3 <= end_time COLLATE "C"
		LIMIT 1
	`, a.DoctorID, a.AppointmentDate, a.StartTime, a.EndTime).Scan(&clashID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: overlaps %s", ErrSlotConflict, clashID)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("check overlap: %w", err)
	}

	created, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+appointmentColumns,
		a.AppointmentID, a.DoctorID, a.PatientID, a.AppointmentDate, a.StartTime, a.EndTime, a.Status, a.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAppointmentIDTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return created, nil
}

func calendarLockKey(doctorID, date string) string {
	return doctorID + "|" + date
}

// sameBooking compares everything but CreatedAt, which differs on replay.
func sameBooking(a, b Appointment) bool {
	return a.AppointmentID == b.AppointmentID &&
		a.DoctorID == b.DoctorID &&
		a.PatientID == b.PatientID &&
		a.AppointmentDate == b.AppointmentDate &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime
}
