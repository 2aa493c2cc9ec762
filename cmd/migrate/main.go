package main

import (
	"context"

	"focusrooms/backend/internal/config"
	"focusrooms/backend/internal/db"
	"focusrooms/backend/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	applied, err := db.RunMigrations(context.Background(), database, cfg.MigrationsDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("run migrations")
	}

	logging.Info().Int("applied", applied).Msg("migrations applied successfully")
}
