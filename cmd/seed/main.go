package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medcore/clinic-scheduling/internal/db"
	"github.com/medcore/clinic-scheduling/internal/logging"
)

func main() {
	log := logging.New("seed", "dev")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID := uuid.New()
	if err := seedClinic(context.Background(), pool, clinicID); err != nil {
		log.Fatal().Err(err).Msg("seed clinic")
	}
	if err := seedDoctors(context.Background(), pool, clinicID, 25, log); err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, 2000, log); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedRooms(context.Background(), pool, clinicID, 10); err != nil {
		log.Fatal().Err(err).Msg("seed rooms")
	}

	log.Info().Str("clinic_id", clinicID.String()).Msg("seed complete")
}

func seedClinic(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO clinics (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`, id, gofakeit.Company()+" Clinic")
	return err
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding doctors with weekly hours")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, clinic_id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, clinicID, name, spec)
		if err != nil {
			return err
		}

		// Monday through Friday, 08:00-17:00 with a lunch hour.
		for weekday := 1; weekday <= 5; weekday++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_hours (id, doctor_id, day_of_week, is_available, start_time, end_time, break_start, break_end)
				VALUES ($1, $2, $3, true, '08:00', '17:00', '12:00', '13:00')
			`, uuid.New(), id, weekday)
			if err != nil {
				return err
			}
		}

		// A third of the doctors take a week of vacation next month.
		if gofakeit.Number(0, 2) == 0 {
			start := time.Now().AddDate(0, 1, gofakeit.Number(0, 14))
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_vacations (id, doctor_id, start_date, end_date, reason)
				VALUES ($1, $2, $3, $4, 'annual leave')
			`, uuid.New(), id, start, start.AddDate(0, 0, 6))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("seeded", end).Int("total", count).Msg("patients progress")
	}

	return nil
}

func seedRooms(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 1; i <= count; i++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO rooms (id, clinic_id, name, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), clinicID, gofakeit.LetterN(1)+"-"+gofakeit.DigitN(2))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
