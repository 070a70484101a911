package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/repository/memory"
)

var day1 = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(store repository.Store, defaults AccountDefaults, clock time.Time) *ledgerService {
	svc := NewLedgerService(store, defaults).(*ledgerService)
	svc.now = func() time.Time { return clock }
	return svc
}

// openFunded opens an account for owner and deposits balance into it.
func openFunded(t *testing.T, ledger LedgerService, owner, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := ledger.OpenAccount(ctx, OpenAccountRequest{OwnerUsername: owner, HolderName: "Holder " + owner})
	require.NoError(t, err)
	if b := dec(balance); b.IsPositive() {
		_, err = ledger.Deposit(ctx, account.Number, b, "initial funding")
		require.NoError(t, err)
	}
	return account
}

func balanceOf(t *testing.T, store repository.Store, id uuid.UUID) decimal.Decimal {
	t.Helper()
	account, err := store.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

// faultyStore fails MarkSchedulePaid inside units of work.
type faultyStore struct {
	*memory.Store
	err error
}

func (f *faultyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return f.Store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return fn(ctx, faultyRepos{Repositories: repos, err: f.err})
	})
}

type faultyRepos struct {
	repository.Repositories
	err error
}

func (r faultyRepos) Loans() repository.LoanRepository {
	return faultyLoans{LoanRepository: r.Repositories.Loans(), err: r.err}
}

type faultyLoans struct {
	repository.LoanRepository
	err error
}

func (l faultyLoans) MarkSchedulePaid(ctx context.Context, loanID uuid.UUID, paymentNumber int) (bool, error) {
	return false, l.err
}

// MockMappingRepo
type MockMappingRepo struct {
	mock.Mock
}

func (m *MockMappingRepo) FindByHash(ctx context.Context, hash string) (*domain.AnonymizedMapping, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnonymizedMapping), args.Error(1)
}

func (m *MockMappingRepo) FindByToken(ctx context.Context, token string) (*domain.AnonymizedMapping, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnonymizedMapping), args.Error(1)
}

func (m *MockMappingRepo) Create(ctx context.Context, mapping *domain.AnonymizedMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

// MockTokenCache
type MockTokenCache struct {
	mock.Mock
}

func (m *MockTokenCache) GetToken(ctx context.Context, hash string) (string, bool, error) {
	args := m.Called(ctx, hash)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockTokenCache) SetToken(ctx context.Context, hash, token string) error {
	args := m.Called(ctx, hash, token)
	return args.Error(0)
}
