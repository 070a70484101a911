package domain

import "time"

// InterestRunResult summarises one pass of the daily interest accrual.
type InterestRunResult struct {
	RunAt    time.Time `json:"run_at"`
	Credited int       `json:"credited"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}

// LoanDiscrepancy is reported by loan reconciliation when stored loan state disagrees with
// the recorded payments.
type LoanDiscrepancy struct {
	LoanID string `json:"loan_id"`
	Reason string `json:"reason"`
}
