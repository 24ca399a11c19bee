package appointment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/cache"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
)

// -- Mock Repository --

type mockRepo struct {
	mu           sync.Mutex
	doctors      map[string]*Doctor
	patients     map[string]*Patient
	appointments []Appointment

	listErr    error
	doctorErr  error
	patientErr error
	writeErr   error

	listCalls    atomic.Int32
	doctorCalls  atomic.Int32
	patientCalls atomic.Int32
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		doctors:  map[string]*Doctor{},
		patients: map[string]*Patient{},
	}
}

func (m *mockRepo) addDoctor(id, first, last string) {
	m.doctors[id] = &Doctor{DoctorID: id, FirstName: first, LastName: last, Email: id + "@clinic.test"}
}

func (m *mockRepo) addPatient(id, first, last string) {
	m.patients[id] = &Patient{PatientID: id, FirstName: first, LastName: last, Email: id + "@mail.test"}
}

func (m *mockRepo) addAppointment(id, doctorID, date, start, end string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments = append(m.appointments, Appointment{
		AppointmentID:   id,
		DoctorID:        doctorID,
		PatientID:       "P0",
		AppointmentDate: date,
		StartTime:       start,
		EndTime:         end,
		Status:          StatusConfirmed,
		CreatedAt:       time.Now(),
	})
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appointments)
}

func (m *mockRepo) ListAppointments(_ context.Context, doctorID, date string) ([]Appointment, error) {
	m.listCalls.Add(1)
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate == date && a.Status == StatusConfirmed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) ListAppointmentsByDate(_ context.Context, date string) ([]Appointment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.AppointmentDate == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) GetDoctor(_ context.Context, id string) (*Doctor, error) {
	m.doctorCalls.Add(1)
	if m.doctorErr != nil {
		return nil, m.doctorErr
	}
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetPatient(_ context.Context, id string) (*Patient, error) {
	m.patientCalls.Add(1)
	if m.patientErr != nil {
		return nil, m.patientErr
	}
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) PutAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.appointments {
		if e.AppointmentID == a.AppointmentID && e.DoctorID == a.DoctorID {
			m.appointments[i] = a
			return &a, nil
		}
	}
	m.appointments = append(m.appointments, a)
	return &a, nil
}

func (m *mockRepo) InsertIfNoOverlap(_ context.Context, a Appointment) (*Appointment, error) {
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.appointments {
		if e.AppointmentID == a.AppointmentID && e.DoctorID == a.DoctorID {
			if sameBooking(e, a) {
				cp := e
				return &cp, nil
			}
			return nil, ErrAppointmentIDTaken
		}
	}
	var sameDay []Appointment
	for _, e := range m.appointments {
		if e.DoctorID == a.DoctorID && e.AppointmentDate == a.AppointmentDate {
			sameDay = append(sameDay, e)
		}
	}
	if _, clash := FindConflict(Slot{StartTime: a.StartTime, EndTime: a.EndTime}, sameDay); clash {
		return nil, ErrSlotConflict
	}
	m.appointments = append(m.appointments, a)
	return &a, nil
}

// -- Mock Cache --

type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	broken bool
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

var errCacheDown = errors.New("dial tcp: connection refused")

func (c *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, errCacheDown
	}
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errCacheDown
	}
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errCacheDown
	}
	delete(c.data, key)
	delete(c.ttls, key)
	return nil
}

func (c *mockCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *mockCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}

// -- Wiring --

type fixture struct {
	repo      *mockRepo
	cache     *mockCache
	policy    *cache.Policy
	engine    *Engine
	directory *Directory
	ledger    *Ledger
	metrics   *metrics.Collector
}

func newFixture(c cache.Cache, mode config.LedgerMode) *fixture {
	repo := newMockRepo()
	m := metrics.NewCollector(prometheus.NewRegistry())
	policy := cache.NewPolicy(c, cache.DefaultTTLs(), time.Second, zerolog.Nop(), m)

	f := &fixture{
		repo:      repo,
		policy:    policy,
		engine:    NewEngine(repo, repo, policy, time.Second, zerolog.Nop(), m),
		directory: NewDirectory(repo, policy, time.Second, zerolog.Nop()),
		ledger:    NewLedger(repo, mode, policy, time.Second, zerolog.Nop(), m),
		metrics:   m,
	}
	if mc, ok := c.(*mockCache); ok {
		f.cache = mc
	}
	return f
}

func slot(doctor, date, start, end string) Slot {
	return Slot{DoctorID: doctor, Date: date, StartTime: start, EndTime: end}
}
