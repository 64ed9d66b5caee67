package main

import (
	"context"
	"os"

	"converge/internal/config"
	"converge/internal/db"
	"converge/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	applied, err := db.RunMigrations(context.Background(), database, db.Migrations())
	if err != nil {
		logger.Error("run migrations", "error", err, "applied", applied)
		database.Close()
		os.Exit(1)
	}

	logger.Info("migrations applied successfully", "db_path", cfg.DBPath, "applied", applied)
}
