package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
)

// Directory verifies patients through a read-through cache.
type Directory struct {
	patients     PatientStore
	cache        *cache.Policy
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewDirectory(patients PatientStore, policy *cache.Policy, storeTimeout time.Duration, log zerolog.Logger) *Directory {
	return &Directory{
		patients:     patients,
		cache:        policy,
		storeTimeout: orDefault(storeTimeout),
		log:          log.With().Str("component", "patients").Logger(),
	}
}

// VerifyPatient returns the patient record or ErrPatientNotFound.
// Not-found results are not cached.
func (d *Directory) VerifyPatient(ctx context.Context, patientID string) (*Patient, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, invalid("missing required field: PatientID")
	}

	key := cache.PatientKey(patientID)

	var cached Patient
	if d.cache.Load(ctx, key, &cached) && cached.PatientID == patientID {
		return &cached, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, d.storeTimeout)
	defer cancel()

	p, err := d.patients.GetPatient(storeCtx, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		d.log.Error().Err(err).Str("patient_id", patientID).Msg("patient read failed")
		return nil, infra("get patient", err)
	}

	d.cache.Store(ctx, key, p, d.cache.TTL().Patient)
	return p, nil
}
