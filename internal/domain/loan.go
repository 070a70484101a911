package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusPaid     LoanStatus = "PAID"
)

// CanTransitionTo reports whether the loan state machine allows moving from s to next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch s {
	case LoanStatusPending:
		return next == LoanStatusApproved || next == LoanStatusRejected
	case LoanStatusApproved:
		return next == LoanStatusPaid
	default:
		return false
	}
}

type Loan struct {
	ID               uuid.UUID              `json:"id"`
	Principal        decimal.Decimal        `json:"principal"`
	AnnualRate       decimal.Decimal        `json:"annual_rate"` // percent, e.g. 12.5
	StartDate        time.Time              `json:"start_date"`
	TermMonths       int                    `json:"term_months"`
	Status           LoanStatus             `json:"status"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	OwnerAccountID   uuid.UUID              `json:"owner_account_id"`
	Schedule         []PaymentScheduleEntry `json:"schedule,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

type PaymentScheduleEntry struct {
	LoanID           uuid.UUID       `json:"loan_id"`
	PaymentNumber    int             `json:"payment_number"`
	DueDate          time.Time       `json:"due_date"`
	PrincipalPart    decimal.Decimal `json:"principal_part"`
	InterestPart     decimal.Decimal `json:"interest_part"`
	TotalPayment     decimal.Decimal `json:"total_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Paid             bool            `json:"paid"`
}

// Payment records one repayment event against a loan.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	LoanID        uuid.UUID       `json:"loan_id"`
	PaymentNumber int             `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}
