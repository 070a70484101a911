package jobs

import (
	"time"

	"retail-bank-core/internal/config"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/service"
)

// JobRunner runs the bank's batch jobs. Each job catches its own panics so one failure
// never stops the scheduler.
type JobRunner struct {
	services *Services
	config   *config.Config
}

type Services struct {
	Ledger service.LedgerService
	Loan   service.LoanService
}

func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r, "elapsed", time.Since(start))
		}
	}()

	logger.Info("Job started", "job", jobName)
	jobFunc()
	logger.Info("Job finished", "job", jobName, "elapsed", time.Since(start))
}

// RunAllNightlyJobs runs interest accrual followed by loan reconciliation, as the -run-once
// all-nightly target does.
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ApplyDailyInterest()
	jr.ReconcileLoans()
}
