package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentIDTaken  = errors.New("appointment id already used for a different booking")
	ErrSlotConflict        = errors.New("doctor is not available at the requested time")
	ErrInfrastructure      = errors.New("infrastructure failure")
	ErrInvariantViolation  = errors.New("invariant violation")
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindNone Kind = iota
	KindClient
	KindConflict
	KindInfrastructure
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindClient:
		return "client"
	case KindConflict:
		return "conflict"
	case KindInfrastructure:
		return "infrastructure"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Anything unrecognised is infrastructure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariant
	case errors.Is(err, ErrSlotConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrAppointmentIDTaken):
		return KindClient
	default:
		return KindInfrastructure
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func infra(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInfrastructure, err)
}
