package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/config"
	"github.com/hackgods/appointment-booking-engine/internal/db"
	"github.com/hackgods/appointment-booking-engine/internal/logging"
)

func main() {
	doctors := flag.Int("doctors", 100, "number of doctors to seed")
	patients := flag.Int("patients", 9000, "number of patients to seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", "seed")
		boot.Fatal().Err(err).Msg("config load error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, "seed")
	log.Info().Int("doctors", *doctors).Int("patients", *patients).Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedDoctors(context.Background(), pool, faker, log, *doctors); err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, faker, log, *patients); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

// IDs are sequential so the simulator and manual requests can target
// D001, P0001 and so on. Re-running the seed refreshes names in place.
func seedDoctors(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, log zerolog.Logger, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 1; i <= count; i++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (doctor_id, first_name, last_name, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (doctor_id) DO UPDATE
			SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, email = EXCLUDED.email
		`, doctorID(i), faker.FirstName(), faker.LastName(), faker.Email())
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Int("count", count).Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, log zerolog.Logger, count int) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset + 1; i <= end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (patient_id, first_name, last_name, email)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (patient_id) DO UPDATE
				SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, email = EXCLUDED.email
			`, patientID(i), faker.FirstName(), faker.LastName(), faker.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

func doctorID(n int) string  { return fmt.Sprintf("D%03d", n) }
func patientID(n int) string { return fmt.Sprintf("P%04d", n) }
