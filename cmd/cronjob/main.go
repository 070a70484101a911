package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"retail-bank-core/internal/app"
	"retail-bank-core/internal/config"
	"retail-bank-core/internal/jobs"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'apply-daily-interest', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Retail Bank Cronjob Runner...", "log_level", cfg.Log.Level)

	bank, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer bank.Close()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Ledger: bank.Ledger,
		Loan:   bank.Loans,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			bank.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once; it reports false for an unknown job name
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "apply-daily-interest":
		jobRunner.ApplyDailyInterest()
	case "reconcile-loans":
		jobRunner.ReconcileLoans()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - apply-daily-interest\n")
		fmt.Printf("  - reconcile-loans\n")
		fmt.Printf("  - all-nightly\n")
		return false
	}
	return true
}
