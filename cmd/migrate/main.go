package main

import (
	"flag"
	"log"

	"retail-bank-core/internal/config"
	"retail-bank-core/internal/database"
	"retail-bank-core/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	down := flag.Int("down", 0, "Roll back this many migrations instead of migrating up")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("Migrations require the %q driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	url := cfg.GetDatabaseConnectionString()
	if *down > 0 {
		logger.Info("Rolling back migrations", "steps", *down)
		err = database.MigrateDown(url, *down)
	} else {
		logger.Info("Applying migrations")
		err = database.MigrateUp(url)
	}
	if err != nil {
		logger.Error("Migration failed", "error", err)
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Migration completed")
}
