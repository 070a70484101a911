package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository/memory"
	"retail-bank-core/internal/security"
)

func TestLedgerService_OpenAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{DailyTransferLimit: dec("1000"), DailyWithdrawalLimit: dec("500")}, day1)

	t.Run("Success", func(t *testing.T) {
		passport := "AB123456"
		account, err := svc.OpenAccount(ctx, OpenAccountRequest{OwnerUsername: "alice", HolderName: "Alice Doe", PassportNumber: &passport})
		require.NoError(t, err)

		id, err := security.DecodeAccountNumber(account.Number)
		require.NoError(t, err)
		assert.Equal(t, account.ID, id)
		assert.True(t, account.Balance.IsZero())
		assert.True(t, dec("1000").Equal(account.DailyTransferLimit))
		assert.True(t, dec("500").Equal(account.DailyWithdrawalLimit))

		accounts, err := svc.ListAccountsForOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "Alice Doe", accounts[0].HolderName)
	})

	t.Run("Missing holder name", func(t *testing.T) {
		_, err := svc.OpenAccount(ctx, OpenAccountRequest{OwnerUsername: "alice"})
		assert.ErrorIs(t, err, domain.ErrInvalidAccountRequest)
		assert.Contains(t, err.Error(), "HolderName")
	})
}

func TestLedgerService_Deposit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	account := openFunded(t, svc, "alice", "0")

	t.Run("Success", func(t *testing.T) {
		tx, err := svc.Deposit(ctx, account.Number, dec("125.50"), "salary")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeDeposit, tx.Type)
		assert.Nil(t, tx.SourceAccountID)
		require.NotNil(t, tx.TargetAccountID)
		assert.Equal(t, account.ID, *tx.TargetAccountID)
		assert.True(t, dec("125.50").Equal(balanceOf(t, store, account.ID)))
	})

	for _, amount := range []string{"0", "-5", "0.001", "10.999"} {
		t.Run("Invalid amount "+amount, func(t *testing.T) {
			before := balanceOf(t, store, account.ID)
			_, err := svc.Deposit(ctx, account.Number, dec(amount), "bad")
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			assert.True(t, before.Equal(balanceOf(t, store, account.ID)))
		})
	}

	t.Run("Unknown account", func(t *testing.T) {
		_, err := svc.Deposit(ctx, security.EncodeAccountNumber(uuid.New()), dec("1"), "x")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("Malformed account number", func(t *testing.T) {
		_, err := svc.Deposit(ctx, "not-a-number!", dec("1"), "x")
		assert.ErrorIs(t, err, domain.ErrInvalidAccountNumber)
	})
}

func TestLedgerService_Withdraw(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	account := openFunded(t, svc, "alice", "100")

	t.Run("Success", func(t *testing.T) {
		tx, err := svc.Withdraw(ctx, account.Number, dec("30"), "atm")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeWithdrawal, tx.Type)
		require.NotNil(t, tx.SourceAccountID)
		assert.Equal(t, account.ID, *tx.SourceAccountID)
		assert.Nil(t, tx.TargetAccountID)
		assert.True(t, dec("70").Equal(balanceOf(t, store, account.ID)))
	})

	t.Run("Insufficient funds", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, account.Number, dec("70.01"), "atm")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.True(t, dec("70").Equal(balanceOf(t, store, account.ID)))
	})

	t.Run("Exact balance", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, account.Number, dec("70"), "atm")
		require.NoError(t, err)
		assert.True(t, balanceOf(t, store, account.ID).IsZero())
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, account.Number, dec("0"), "atm")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	a := openFunded(t, svc, "alice", "100")
	b := openFunded(t, svc, "bob", "0")

	t.Run("Moves funds atomically", func(t *testing.T) {
		tx, err := svc.Transfer(ctx, a.Number, b.Number, dec("40"), "rent", "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeTransfer, tx.Type)
		assert.Equal(t, a.ID, *tx.SourceAccountID)
		assert.Equal(t, b.ID, *tx.TargetAccountID)

		assert.True(t, dec("60").Equal(balanceOf(t, store, a.ID)))
		assert.True(t, dec("40").Equal(balanceOf(t, store, b.ID)))

		txs, err := svc.ListTransactions(ctx, b.Number)
		require.NoError(t, err)
		transfers := 0
		for _, tx := range txs {
			if tx.Type == domain.TransactionTypeTransfer {
				transfers++
			}
		}
		assert.Equal(t, 1, transfers)
	})

	t.Run("Insufficient funds leaves both balances", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, b.Number, dec("150"), "too much", "alice")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.True(t, dec("60").Equal(balanceOf(t, store, a.ID)))
		assert.True(t, dec("40").Equal(balanceOf(t, store, b.ID)))
	})

	t.Run("Forbidden", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, b.Number, dec("1"), "steal", "bob")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.True(t, dec("60").Equal(balanceOf(t, store, a.ID)))
	})

	t.Run("Same account", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, a.Number, dec("1"), "loop", "alice")
		assert.ErrorIs(t, err, domain.ErrSameAccount)
	})

	t.Run("Missing target", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, security.EncodeAccountNumber(uuid.New()), dec("1"), "void", "alice")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		assert.True(t, dec("60").Equal(balanceOf(t, store, a.ID)))
	})

	t.Run("Invalid amount", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, b.Number, dec("-1"), "neg", "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestLedgerService_ConcurrentOppositeTransfers(t *testing.T) {
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	a := openFunded(t, svc, "carol", "1000")
	b := openFunded(t, svc, "carol", "1000")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, a.Number, b.Number, dec("10"), "a to b", "carol")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, b.Number, a.Number, dec("10"), "b to a", "carol")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.True(t, dec("1000").Equal(balanceOf(t, store, a.ID)))
	assert.True(t, dec("1000").Equal(balanceOf(t, store, b.ID)))

	txs, err := svc.ListTransactions(context.Background(), a.Number)
	require.NoError(t, err)
	assert.Len(t, txs, 2*rounds+1) // transfers plus the funding deposit
}

func TestLedgerService_DailyLimits(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{DailyTransferLimit: dec("100"), DailyWithdrawalLimit: dec("80")}, day1)
	a := openFunded(t, svc, "alice", "1000")
	b := openFunded(t, svc, "bob", "0")

	t.Run("Withdrawal limit", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, a.Number, dec("50"), "atm")
		require.NoError(t, err)
		_, err = svc.Withdraw(ctx, a.Number, dec("30"), "atm")
		require.NoError(t, err)
		_, err = svc.Withdraw(ctx, a.Number, dec("0.01"), "atm")
		assert.ErrorIs(t, err, domain.ErrDailyLimitExceeded)
	})

	t.Run("Transfer limit is tracked separately", func(t *testing.T) {
		_, err := svc.Transfer(ctx, a.Number, b.Number, dec("100"), "gift", "alice")
		require.NoError(t, err)
		_, err = svc.Transfer(ctx, a.Number, b.Number, dec("1"), "gift", "alice")
		assert.ErrorIs(t, err, domain.ErrDailyLimitExceeded)
	})

	t.Run("Limits reset the next UTC day", func(t *testing.T) {
		svc.now = func() time.Time { return day1.Add(24 * time.Hour) }
		_, err := svc.Withdraw(ctx, a.Number, dec("80"), "atm")
		require.NoError(t, err)
		_, err = svc.Transfer(ctx, a.Number, b.Number, dec("100"), "gift", "alice")
		require.NoError(t, err)
	})

	t.Run("Zero limit means unlimited", func(t *testing.T) {
		unlimited := newLedger(store, AccountDefaults{}, day1)
		c := openFunded(t, unlimited, "dave", "5000")
		_, err := unlimited.Withdraw(ctx, c.Number, dec("4000"), "car")
		require.NoError(t, err)
	})
}

func TestLedgerService_ApplyDailyInterest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	rich := openFunded(t, svc, "alice", "36500")
	empty := openFunded(t, svc, "bob", "0")

	svc.now = func() time.Time { return day1.Add(time.Hour) }
	result, err := svc.ApplyDailyInterest(ctx, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Credited)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, dec("36501").Equal(balanceOf(t, store, rich.ID)))

	emptyAccount, err := store.Accounts().GetByID(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, emptyAccount.InterestAccruedOn(day1))

	txs, err := svc.ListTransactions(ctx, rich.Number)
	require.NoError(t, err)
	assert.Equal(t, "Daily interest 2026-03-14", txs[0].Description)
	assert.True(t, dec("1").Equal(txs[0].Amount))

	t.Run("Second run on the same day is a no-op", func(t *testing.T) {
		svc.now = func() time.Time { return day1.Add(3 * time.Hour) }
		result, err := svc.ApplyDailyInterest(ctx, dec("1"))
		require.NoError(t, err)
		assert.Equal(t, 0, result.Credited)
		assert.Equal(t, 2, result.Skipped)
		assert.True(t, dec("36501").Equal(balanceOf(t, store, rich.ID)))
	})

	t.Run("Next day accrues again", func(t *testing.T) {
		svc.now = func() time.Time { return day1.Add(24 * time.Hour) }
		result, err := svc.ApplyDailyInterest(ctx, dec("1"))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Credited)
		// 36501 * 1 / 36500 = 1.0000274 -> 1.00
		assert.True(t, dec("36502").Equal(balanceOf(t, store, rich.ID)))
	})

	t.Run("Negative rate", func(t *testing.T) {
		_, err := svc.ApplyDailyInterest(ctx, dec("-1"))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestLedgerService_ListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newLedger(store, AccountDefaults{}, day1)
	account := openFunded(t, svc, "alice", "10")

	svc.now = func() time.Time { return day1.Add(time.Minute) }
	_, err := svc.Withdraw(ctx, account.Number, dec("5"), "later")
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, account.Number)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "later", txs[0].Description)
	assert.Equal(t, "initial funding", txs[1].Description)

	_, err = svc.ListTransactions(ctx, security.EncodeAccountNumber(uuid.New()))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"100", true},
		{"100.10", true},
		{"0", false},
		{"-0.01", false},
		{"0.005", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := validateAmount(decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			}
		})
	}
}
