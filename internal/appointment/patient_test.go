package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/config"
)

func TestVerifyPatient_Found(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addPatient("P1", "Rui", "Costa")

	p, err := f.directory.VerifyPatient(context.Background(), "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PatientID != "P1" || p.FullName() != "Rui Costa" {
		t.Fatalf("unexpected patient %+v", p)
	}
	if got := f.cache.ttl(cache.PatientKey("P1")); got != 24*time.Hour {
		t.Errorf("patient ttl = %s", got)
	}
}

func TestVerifyPatient_CacheHitSkipsStore(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addPatient("P1", "Rui", "Costa")

	for i := 0; i < 3; i++ {
		if _, err := f.directory.VerifyPatient(context.Background(), "P1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.repo.patientCalls.Load() != 1 {
		t.Errorf("expected one store read, got %d", f.repo.patientCalls.Load())
	}
}

func TestVerifyPatient_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)

	_, err := f.directory.VerifyPatient(context.Background(), "P404")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if f.cache.has(cache.PatientKey("P404")) {
		t.Error("not-found must not be cached")
	}

	// Registering the patient takes effect immediately.
	f.repo.addPatient("P404", "Late", "Comer")
	if _, err := f.directory.VerifyPatient(context.Background(), "P404"); err != nil {
		t.Fatalf("expected patient found after registration, got %v", err)
	}
}

func TestVerifyPatient_StoreFailureIsError(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.patientErr = errors.New("connection reset")

	_, err := f.directory.VerifyPatient(context.Background(), "P1")
	if !errors.Is(err, ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if errors.Is(err, ErrPatientNotFound) {
		t.Error("store failure must not look like not-found")
	}
}

func TestVerifyPatient_BrokenCacheFallsBack(t *testing.T) {
	c := newMockCache()
	c.broken = true
	f := newFixture(c, config.LedgerConditional)
	f.repo.addPatient("P1", "Rui", "Costa")

	p, err := f.directory.VerifyPatient(context.Background(), "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PatientID != "P1" {
		t.Errorf("unexpected patient %+v", p)
	}
}

func TestVerifyPatient_MismatchedCacheEntryIgnored(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addPatient("P1", "Rui", "Costa")
	f.policy.Store(context.Background(), cache.PatientKey("P1"), Patient{PatientID: "P2"}, time.Hour)

	p, err := f.directory.VerifyPatient(context.Background(), "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PatientID != "P1" || f.repo.patientCalls.Load() != 1 {
		t.Errorf("expected store read for mismatched entry, got %+v calls=%d", p, f.repo.patientCalls.Load())
	}
}

func TestVerifyPatient_MissingID(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)

	if _, err := f.directory.VerifyPatient(context.Background(), " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
