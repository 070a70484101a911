package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

const testFieldKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

var accountColumnNames = []string{
	"id", "number", "owner_username", "holder_name", "passport_number", "balance",
	"daily_transfer_limit", "daily_withdrawal_limit", "last_interest_accrual_at", "created_at", "updated_at",
}

func newTestEncryptor(t *testing.T) security.FieldEncryptor {
	t.Helper()
	enc, err := security.NewFieldEncryptor(testFieldKey)
	require.NoError(t, err)
	return enc
}

func TestStore_RunInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	enc := newTestEncryptor(t)
	store := NewStore(db, enc)
	ctx := context.Background()
	id := uuid.New()

	t.Run("Commit", func(t *testing.T) {
		holder, err := enc.Encrypt("Jane Doe")
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1 FOR UPDATE")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(accountColumnNames).
				AddRow(id.String(), "000ABC", "jane", holder, nil, "10.00", "0", "0", nil, fixedTime, fixedTime))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(decimal.RequireFromString("15.00"), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			a, err := repos.Accounts().GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			a.Balance = a.Balance.Add(decimal.RequireFromString("5.00"))
			return repos.Accounts().Save(ctx, a)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin fails", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestStore_Accessors(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var store repository.Store = NewStore(db, newTestEncryptor(t))
	assert.NotNil(t, store.Accounts())
	assert.NotNil(t, store.Transactions())
	assert.NotNil(t, store.Loans())
	assert.NotNil(t, store.Mappings())
}
