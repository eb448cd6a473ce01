package main

import (
	"context"
	"os"
	"time"

	"github.com/medcore/clinic-scheduling/internal/config"
	"github.com/medcore/clinic-scheduling/internal/db"
	"github.com/medcore/clinic-scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("migrate", "prod")
		boot.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("migrate", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool, cfg.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("migrator init error")
	}
	defer func() {
		_ = migrator.Close()
	}()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration error")
		}
		version, err := migrator.Version(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("version lookup error")
		}
		log.Info().Int64("version", version).Msg("migrations applied")
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("version lookup error")
		}
		log.Info().Int64("version", version).Msg("current migration version")
	default:
		log.Fatal().Str("command", cmd).Msg("unknown command, expected up or version")
	}
}
