package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"retail-bank-core/internal/jobs"
	"retail-bank-core/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. An invalid cron spec
// in the configuration is an error.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	cl := cronLogger{}
	// Create cron with UTC timezone and seconds precision. A job still running when its
	// next tick fires is skipped rather than run twice.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Nightly jobs
	if _, err := s.cron.AddFunc(cfg.ApplyDailyInterest, s.jobs.ApplyDailyInterest); err != nil {
		logger.Error("Failed to register ApplyDailyInterest job", "spec", cfg.ApplyDailyInterest, "error", err)
		return fmt.Errorf("invalid apply_daily_interest schedule %q: %w", cfg.ApplyDailyInterest, err)
	}

	if _, err := s.cron.AddFunc(cfg.ReconcileLoans, s.jobs.ReconcileLoans); err != nil {
		logger.Error("Failed to register ReconcileLoans job", "spec", cfg.ReconcileLoans, "error", err)
		return fmt.Errorf("invalid reconcile_loans schedule %q: %w", cfg.ReconcileLoans, err)
	}

	logger.Info("All cron jobs registered successfully", "jobs", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has registered jobs
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// NextRuns reports the next activation time of every registered job
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}

// cronLogger routes cron's internal logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
