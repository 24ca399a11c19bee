package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/config"
)

func TestCheckAvailability_Outcomes(t *testing.T) {
	ctx := context.Background()
	ttl := cache.DefaultTTLs()

	tests := []struct {
		name        string
		setup       func(r *mockRepo)
		slot        Slot
		want        Outcome
		wantTTL     time.Duration
		wantDocCall bool
	}{
		{
			name:        "free slot",
			setup:       func(r *mockRepo) { r.addDoctor("D1", "Ana", "Silva") },
			slot:        slot("D1", "2025-06-01", "10:00", "10:30"),
			want:        OutcomeAvailable,
			wantTTL:     ttl.Available,
			wantDocCall: true,
		},
		{
			name: "touching existing appointment",
			setup: func(r *mockRepo) {
				r.addDoctor("D1", "Ana", "Silva")
				r.addAppointment("A1", "D1", "2025-06-01", "09:00", "09:30")
			},
			slot:    slot("D1", "2025-06-01", "09:30", "10:00"),
			want:    OutcomeConflict,
			wantTTL: ttl.Conflict,
		},
		{
			name: "one minute clear of existing",
			setup: func(r *mockRepo) {
				r.addDoctor("D1", "Ana", "Silva")
				r.addAppointment("A1", "D1", "2025-06-01", "09:00", "09:30")
			},
			slot:        slot("D1", "2025-06-01", "08:00", "08:59"),
			want:        OutcomeAvailable,
			wantTTL:     ttl.Available,
			wantDocCall: true,
		},
		{
			name:        "unknown doctor",
			setup:       func(r *mockRepo) {},
			slot:        slot("D9", "2025-06-01", "10:00", "10:30"),
			want:        OutcomeDoctorNotFound,
			wantTTL:     ttl.DoctorNotFound,
			wantDocCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newMockCache(), config.LedgerConditional)
			tt.setup(f.repo)

			d, err := f.engine.CheckAvailability(ctx, tt.slot)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Outcome != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, d.Outcome)
			}

			key := cache.AvailabilityKey(tt.slot.DoctorID, tt.slot.Date, tt.slot.StartTime, tt.slot.EndTime)
			if got := f.cache.ttl(key); got != tt.wantTTL {
				t.Errorf("decision ttl = %s, want %s", got, tt.wantTTL)
			}

			calls := f.repo.doctorCalls.Load()
			if tt.wantDocCall && calls == 0 {
				t.Error("expected doctor lookup")
			}
			if !tt.wantDocCall && calls != 0 {
				t.Errorf("doctor lookup must be skipped on conflict, got %d calls", calls)
			}
		})
	}
}

func TestCheckAvailability_AvailableCarriesDoctor(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")

	d, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Doctor == nil || d.Doctor.DoctorID != "D1" || d.Doctor.FullName() != "Ana Silva" {
		t.Fatalf("expected doctor record, got %+v", d.Doctor)
	}
	if !f.cache.has(cache.DoctorKey("D1")) {
		t.Error("expected doctor key populated after lookup")
	}
	if got := f.cache.ttl(cache.DoctorKey("D1")); got != 30*time.Minute {
		t.Errorf("doctor ttl = %s", got)
	}
}

func TestCheckAvailability_ConflictReportsExistingID(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	f.repo.addAppointment("A1", "D1", "2025-06-01", "10:00", "10:30")

	d, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:15", "10:45"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Outcome != OutcomeConflict || d.ConflictWith != "A1" {
		t.Fatalf("expected conflict with A1, got %+v", d)
	}
	if d.Doctor != nil {
		t.Error("conflict decision carries no doctor")
	}
}

func TestCheckAvailability_DoctorNotFoundLeavesDoctorKeyEmpty(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	s := slot("D9", "2025-06-01", "10:00", "10:30")

	d, err := f.engine.CheckAvailability(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Outcome != OutcomeDoctorNotFound {
		t.Fatalf("expected DoctorNotFound, got %s", d.Outcome)
	}

	if !f.cache.has(cache.AppointmentsKey("D9", "2025-06-01")) {
		t.Error("appointment list is refreshed before the doctor lookup")
	}
	if f.cache.has(cache.DoctorKey("D9")) {
		t.Error("doctor key must not be populated for an unknown doctor")
	}
}

func TestCheckAvailability_RefreshesAppointmentList(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	f.repo.addAppointment("A1", "D1", "2025-06-01", "09:00", "09:30")

	if _, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := cache.AppointmentsKey("D1", "2025-06-01")
	raw, err := f.cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("expected appointment list cached: %v", err)
	}
	var list []Appointment
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode cached list: %v", err)
	}
	if len(list) != 1 || list[0].AppointmentID != "A1" {
		t.Errorf("unexpected cached list %+v", list)
	}
	if got := f.cache.ttl(key); got != 10*time.Minute {
		t.Errorf("appointments ttl = %s", got)
	}
}

func TestCheckAvailability_IgnoresStaleCachedList(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	f.repo.addAppointment("A1", "D1", "2025-06-01", "10:00", "10:30")

	// A list cached before A1 was booked says the day is empty.
	f.policy.Store(context.Background(), cache.AppointmentsKey("D1", "2025-06-01"), []Appointment{}, time.Minute)
	// And a stale Available decision for the same slot.
	f.policy.Store(context.Background(), cache.AvailabilityKey("D1", "2025-06-01", "10:00", "10:30"),
		Decision{Outcome: OutcomeAvailable}, time.Minute)

	d, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Outcome != OutcomeConflict {
		t.Fatalf("decision must come from the store, got %s", d.Outcome)
	}
	if f.repo.listCalls.Load() != 1 {
		t.Errorf("expected one store read, got %d", f.repo.listCalls.Load())
	}
}

func TestCheckAvailability_StoreFailureIsError(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	f.repo.listErr = errors.New("connection reset")

	_, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30"))
	if !errors.Is(err, ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if KindOf(err) != KindInfrastructure {
		t.Errorf("unexpected kind %s", KindOf(err))
	}
	if f.cache.has(cache.AvailabilityKey("D1", "2025-06-01", "10:00", "10:30")) {
		t.Error("no decision may be cached when the store read failed")
	}
}

func TestCheckAvailability_DoctorStoreFailureIsError(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.doctorErr = errors.New("connection reset")

	_, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30"))
	if !errors.Is(err, ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

func TestCheckAvailability_InvalidSlot(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)

	_, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:30", "10:00"))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if f.repo.listCalls.Load() != 0 {
		t.Error("invalid input must not reach the store")
	}
}

func TestCheckAvailability_SameResultWithoutCache(t *testing.T) {
	broken := newMockCache()
	broken.broken = true

	caches := map[string]cache.Cache{
		"working": newMockCache(),
		"noop":    cache.Noop{},
		"broken":  broken,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			f := newFixture(c, config.LedgerConditional)
			f.repo.addDoctor("D1", "Ana", "Silva")
			f.repo.addAppointment("A1", "D1", "2025-06-01", "09:00", "09:30")

			free, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "10:00", "10:30"))
			if err != nil || free.Outcome != OutcomeAvailable {
				t.Fatalf("expected Available, got %+v err=%v", free, err)
			}
			busy, err := f.engine.CheckAvailability(context.Background(), slot("D1", "2025-06-01", "09:15", "09:45"))
			if err != nil || busy.Outcome != OutcomeConflict {
				t.Fatalf("expected Conflict, got %+v err=%v", busy, err)
			}
			missing, err := f.engine.CheckAvailability(context.Background(), slot("D9", "2025-06-01", "10:00", "10:30"))
			if err != nil || missing.Outcome != OutcomeDoctorNotFound {
				t.Fatalf("expected DoctorNotFound, got %+v err=%v", missing, err)
			}
		})
	}
}

func TestCheckAvailability_Idempotent(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	s := slot("D1", "2025-06-01", "10:00", "10:30")

	first, err := f.engine.CheckAvailability(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.engine.CheckAvailability(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Outcome != second.Outcome || second.Doctor.DoctorID != first.Doctor.DoctorID {
		t.Errorf("repeated checks disagree: %+v vs %+v", first, second)
	}
	if f.repo.count() != 0 {
		t.Error("availability checks must not write appointments")
	}
	if f.repo.doctorCalls.Load() != 1 {
		t.Errorf("second check should serve the doctor from cache, got %d store calls", f.repo.doctorCalls.Load())
	}
}

func TestPeek(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addDoctor("D1", "Ana", "Silva")
	s := slot("D1", "2025-06-01", "10:00", "10:30")

	if _, ok, err := f.engine.Peek(context.Background(), s); err != nil || ok {
		t.Fatalf("expected empty peek before any check, ok=%v err=%v", ok, err)
	}

	if _, err := f.engine.CheckAvailability(context.Background(), s); err != nil {
		t.Fatalf("check: %v", err)
	}

	d, ok, err := f.engine.Peek(context.Background(), s)
	if err != nil || !ok {
		t.Fatalf("expected cached decision, ok=%v err=%v", ok, err)
	}
	if d.Outcome != OutcomeAvailable {
		t.Errorf("unexpected peeked outcome %s", d.Outcome)
	}
}

func TestCalendar(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)
	f.repo.addAppointment("A1", "D1", "2025-06-01", "09:00", "09:30")
	f.repo.addAppointment("A2", "D1", "2025-06-02", "09:00", "09:30")

	list, err := f.engine.Calendar(context.Background(), "D1", "2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].AppointmentID != "A1" {
		t.Fatalf("unexpected calendar %+v", list)
	}

	// Second read is served from the cached list.
	if _, err := f.engine.Calendar(context.Background(), "D1", "2025-06-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.listCalls.Load() != 1 {
		t.Errorf("expected one store read, got %d", f.repo.listCalls.Load())
	}

	if _, err := f.engine.Calendar(context.Background(), "D1", "June 1st"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for bad date, got %v", err)
	}
}

func TestCalendar_EmptyDayIsEmptyList(t *testing.T) {
	f := newFixture(newMockCache(), config.LedgerConditional)

	list, err := f.engine.Calendar(context.Background(), "D1", "2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}
