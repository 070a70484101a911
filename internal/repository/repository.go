package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// GetByIDForUpdate locks the row until the surrounding unit of work ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListByOwner(ctx context.Context, username string) ([]domain.Account, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Save(ctx context.Context, account *domain.Account) error
}

type TransactionRepository interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	SumOutgoingSince(ctx context.Context, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error)
}

type LoanRepository interface {
	// Create persists the loan together with its schedule.
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	Update(ctx context.Context, loan *domain.Loan) error
	ListByOwner(ctx context.Context, username string) ([]domain.Loan, error)
	ListAll(ctx context.Context) ([]domain.Loan, error)

	ListSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.PaymentScheduleEntry, error)
	MarkSchedulePaid(ctx context.Context, loanID uuid.UUID, paymentNumber int) (bool, error)

	CreatePayment(ctx context.Context, payment *domain.Payment) error
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error)
}

type MappingRepository interface {
	FindByHash(ctx context.Context, hash string) (*domain.AnonymizedMapping, error)
	FindByToken(ctx context.Context, token string) (*domain.AnonymizedMapping, error)
	// Create fails with domain.ErrDuplicateMapping when the hash or token is taken.
	Create(ctx context.Context, mapping *domain.AnonymizedMapping) error
}

// Repositories is the set of stores that take part in a single unit of work.
type Repositories interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Loans() LoanRepository
}

// TxRunner runs fn atomically. Every write made through repos is committed when fn returns
// nil and discarded otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is implemented by every storage backend.
type Store interface {
	Repositories
	TxRunner
	Mappings() MappingRepository
}
