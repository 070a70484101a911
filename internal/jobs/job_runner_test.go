package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/config"
	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository/memory"
	"retail-bank-core/internal/service"
)

func testConfig(rate string) *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{InterestRatePercent: rate},
	}
}

func TestJobRunner_ApplyDailyInterest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := service.NewLedgerService(store, service.AccountDefaults{})
	loans := service.NewLoanService(store)

	account, err := ledger.OpenAccount(ctx, service.OpenAccountRequest{OwnerUsername: "alice", HolderName: "Alice"})
	require.NoError(t, err)
	_, err = ledger.Deposit(ctx, account.Number, decimal.NewFromInt(36500), "funding")
	require.NoError(t, err)

	jr := NewJobRunner(&Services{Ledger: ledger, Loan: loans}, testConfig("2"))
	jr.ApplyDailyInterest()
	jr.ApplyDailyInterest()

	stored, err := ledger.GetAccount(ctx, account.Number)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(36502).Equal(stored.Balance), "interest must be applied once per day, got %s", stored.Balance)
	assert.True(t, stored.InterestAccruedOn(time.Now()))
}

func TestJobRunner_ZeroRateIsNoop(t *testing.T) {
	ledger := &panickyLedger{}
	jr := NewJobRunner(&Services{Ledger: ledger}, testConfig("0"))

	assert.NotPanics(t, jr.ApplyDailyInterest)
	assert.Equal(t, 0, ledger.calls)
}

func TestJobRunner_RecoversFromPanics(t *testing.T) {
	ledger := &panickyLedger{}
	jr := NewJobRunner(&Services{Ledger: ledger, Loan: &panickyLoans{}}, testConfig("1"))

	assert.NotPanics(t, jr.RunAllNightlyJobs)
	assert.Equal(t, 1, ledger.calls)
}

func TestJobRunner_ReconcileLoans(t *testing.T) {
	store := memory.NewStore()
	jr := NewJobRunner(&Services{
		Ledger: service.NewLedgerService(store, service.AccountDefaults{}),
		Loan:   service.NewLoanService(store),
	}, testConfig("0"))

	assert.NotPanics(t, jr.ReconcileLoans)
	assert.Same(t, jr.config, jr.Config())
}

type panickyLedger struct {
	service.LedgerService
	calls int
}

func (p *panickyLedger) ApplyDailyInterest(ctx context.Context, rate decimal.Decimal) (*domain.InterestRunResult, error) {
	p.calls++
	panic("store exploded")
}

type panickyLoans struct {
	service.LoanService
}

func (p *panickyLoans) ReconcileLoans(ctx context.Context) ([]domain.LoanDiscrepancy, error) {
	panic("store exploded")
}
