package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
)

// OpenAccountRequest describes a new deposit account.
type OpenAccountRequest struct {
	OwnerUsername  string  `validate:"required,max=255"`
	HolderName     string  `validate:"required,max=255"`
	PassportNumber *string `validate:"omitempty,min=4,max=64"`
}

// LoanApplication holds the terms requested for a new loan. AnnualRate is a percentage.
type LoanApplication struct {
	Principal          decimal.Decimal `validate:"gt=0"`
	AnnualRate         decimal.Decimal `validate:"gt=0,lte=100"`
	StartDate          time.Time       `validate:"required"`
	TermMonths         int             `validate:"min=1,max=600"`
	OwnerAccountNumber string          `validate:"required"`
}

type LedgerService interface {
	OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error)
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error)
	Transfer(ctx context.Context, sourceNumber, targetNumber string, amount decimal.Decimal, description, requestingUser string) (*domain.Transaction, error)
	ApplyDailyInterest(ctx context.Context, annualRatePercent decimal.Decimal) (*domain.InterestRunResult, error)
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
	ListAccountsForOwner(ctx context.Context, username string) ([]domain.Account, error)
	ListTransactions(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
}

type LoanService interface {
	CreateLoan(ctx context.Context, app LoanApplication) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	RejectLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	RecordPayment(ctx context.Context, loanID uuid.UUID, paymentNumber int, amount decimal.Decimal, payerAccountNumber, requestingUser string) (*domain.Payment, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	GetLoansForOwner(ctx context.Context, username string) ([]domain.Loan, error)
	GetAllLoans(ctx context.Context) ([]domain.Loan, error)
	ReconcileLoans(ctx context.Context) ([]domain.LoanDiscrepancy, error)
}

type PseudonymizationService interface {
	Anonymize(ctx context.Context, original string) (string, error)
	// Deanonymize never fails on missing or corrupt mappings; it returns UnknownPseudonym or
	// DecryptionErrorPseudonym instead. Store failures are still returned as errors.
	Deanonymize(ctx context.Context, token string) (string, error)
	// Reveal is the strict form of Deanonymize.
	Reveal(ctx context.Context, token string) (string, error)
}
