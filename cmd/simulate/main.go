package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/api"
	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/db"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	DoctorID     string
	Date         string
	Rounds       int
	Contenders   int
	ReplayRatio  float64
	PatientLimit int
	PostgresDSN  string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Simulator struct {
	config   SimConfig
	patients []string
	client   *http.Client
	log      zerolog.Logger

	booking OperationMetrics
	replay  OperationMetrics

	// admitted per round, checked after the run
	mu       sync.Mutex
	admitted map[int][]string
}

func main() {
	cfg := loadConfig()
	log := logging.New("info", "console", "simulate")

	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().
		Str("doctor", cfg.DoctorID).
		Str("date", cfg.Date).
		Int("rounds", cfg.Rounds).
		Int("contenders", cfg.Contenders).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	patients, err := loadPatients(ctx, pgPool, cfg.PatientLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("load patients")
	}
	log.Info().Int("patients", len(patients)).Msg("patients loaded")

	sim := &Simulator{
		config:   cfg,
		patients: patients,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
		admitted: make(map[int][]string),
	}

	sim.Run(context.Background())
	sim.PrintReport()

	if err := sim.Verify(context.Background()); err != nil {
		log.Error().Err(err).Msg("calendar verification failed")
		os.Exit(1)
	}
	log.Info().Msg("calendar verified: no overlapping appointments")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base config: %v\n", err)
		os.Exit(1)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		DoctorID:     getEnv("SIM_DOCTOR_ID", "D001"),
		Date:         getEnv("SIM_DATE", time.Now().AddDate(0, 0, 1).Format("2006-01-02")),
		Rounds:       getInt("SIM_ROUNDS", 16),
		Contenders:   getInt("SIM_CONTENDERS", 20),
		ReplayRatio:  getFloat("SIM_REPLAY_RATIO", 0.2),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Contenders <= 0 {
		return fmt.Errorf("SIM_CONTENDERS must be > 0")
	}
	// Each round owns one half-hour block between 08:00 and 16:00 with a
	// gap after it, so rounds never contend with each other.
	if cfg.Rounds <= 0 || cfg.Rounds > 16 {
		return fmt.Errorf("SIM_ROUNDS must be between 1 and 16")
	}
	return nil
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT patient_id FROM patients ORDER BY patient_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no patients loaded, run cmd/seed first")
	}
	return ids, nil
}

// Run fires, per round, Contenders concurrent bookings whose windows all
// overlap the round's block. At most one may be admitted.
func (s *Simulator) Run(ctx context.Context) {
	for round := 0; round < s.config.Rounds; round++ {
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
		)
		for i := 0; i < s.config.Contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(round*1000+i)))
				<-start
				s.contend(ctx, rng, round)
			}(i)
		}
		close(start)
		wg.Wait()
	}
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) contend(ctx context.Context, rng *rand.Rand, round int) {
	base := 8*60 + round*30
	offset := rng.Intn(15)
	req := api.CreateBookingRequest{
		AppointmentID:   "A" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		PatientID:       s.patients[rng.Intn(len(s.patients))],
		DoctorID:        s.config.DoctorID,
		AppointmentDate: s.config.Date,
		StartTime:       clock(base + offset),
		EndTime:         clock(base + offset + 15),
	}

	status, latency, err := s.post(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Msg("booking request failed")
	}
	s.booking.Record(latency, status == http.StatusCreated, status == http.StatusConflict)
	if status != http.StatusCreated {
		return
	}

	s.mu.Lock()
	s.admitted[round] = append(s.admitted[round], req.AppointmentID)
	s.mu.Unlock()

	// A replay of an admitted booking must be answered with the same
	// appointment rather than a conflict.
	if rng.Float64() < s.config.ReplayRatio {
		status, latency, err := s.post(ctx, req)
		if err != nil {
			s.log.Warn().Err(err).Msg("replay request failed")
		}
		s.replay.Record(latency, status == http.StatusCreated, status == http.StatusConflict)
	}
}

func (s *Simulator) post(ctx context.Context, req api.CreateBookingRequest) (int, time.Duration, error) {
	body, _ := json.Marshal(req)
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/bookings", bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, latency, nil
}

// Verify reads the calendar back and fails if any two appointments
// overlap or any round admitted more than one booking.
func (s *Simulator) Verify(ctx context.Context) error {
	for round, ids := range s.admitted {
		if len(ids) > 1 {
			return fmt.Errorf("round %d admitted %d bookings: %v", round, len(ids), ids)
		}
	}

	url := fmt.Sprintf("%s/doctors/%s/calendar?date=%s", s.config.APIBaseURL, s.config.DoctorID, s.config.Date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calendar returned %d", resp.StatusCode)
	}

	var cal api.CalendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&cal); err != nil {
		return fmt.Errorf("decode calendar: %w", err)
	}

	if a, b, ok := firstOverlap(cal.Appointments); ok {
		return fmt.Errorf("appointments %s and %s overlap", a, b)
	}
	return nil
}

func firstOverlap(appts []appointment.Appointment) (string, string, bool) {
	for i, a := range appts {
		others := append(append([]appointment.Appointment{}, appts[:i]...), appts[i+1:]...)
		slot := appointment.Slot{DoctorID: a.DoctorID, Date: a.AppointmentDate, StartTime: a.StartTime, EndTime: a.EndTime}
		if c, ok := appointment.FindConflict(slot, others); ok {
			return a.AppointmentID, c.AppointmentID, true
		}
	}
	return "", "", false
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("CONTENTION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Doctor: %s  Date: %s\n", s.config.DoctorID, s.config.Date)
	fmt.Printf("Rounds: %d  Contenders per round: %d\n", s.config.Rounds, s.config.Contenders)
	fmt.Println()

	printOperationReport("Booking", &s.booking)
	printOperationReport("Replay", &s.replay)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Admitted: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
