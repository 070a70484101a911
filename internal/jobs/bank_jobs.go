package jobs

import (
	"context"
	"time"

	"retail-bank-core/internal/logger"
)

// jobTimeout bounds a single job run.
const jobTimeout = 30 * time.Minute

// ApplyDailyInterest credits the configured annual rate to every account once per UTC day
func (jr *JobRunner) ApplyDailyInterest() {
	jr.runWithRecovery("ApplyDailyInterest", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		rate := jr.config.InterestRate()
		if rate.IsZero() {
			logger.Info("Interest rate is zero, nothing to accrue")
			return
		}

		result, err := jr.services.Ledger.ApplyDailyInterest(ctx, rate)
		if err != nil {
			logger.Error("Failed to apply daily interest", "error", err)
			return
		}
		if result.Failed > 0 {
			logger.Warn("Some accounts could not be credited",
				"failed", result.Failed,
				"credited", result.Credited)
		}

		logger.Info("Daily interest run finished",
			"rate_percent", rate,
			"credited", result.Credited,
			"skipped", result.Skipped,
			"failed", result.Failed)
	})
}

// ReconcileLoans checks every loan's remaining balance against its recorded payments
func (jr *JobRunner) ReconcileLoans() {
	jr.runWithRecovery("ReconcileLoans", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		report, err := jr.services.Loan.ReconcileLoans(ctx)
		if err != nil {
			logger.Error("Failed to reconcile loans", "error", err)
			return
		}
		if len(report) > 0 {
			logger.Warn("Loan reconciliation found discrepancies", "count", len(report))
			return
		}

		logger.Info("All loans reconciled")
	})
}
