package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

const accountColumns = `id, number, owner_username, holder_name, passport_number, balance,
	daily_transfer_limit, daily_withdrawal_limit, last_interest_accrual_at, created_at, updated_at`

type accountRepository struct {
	db  dbtx
	enc security.FieldEncryptor
}

func NewAccountRepository(db dbtx, enc security.FieldEncryptor) repository.AccountRepository {
	return &accountRepository{db: db, enc: enc}
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	holder, err := r.enc.Encrypt(a.HolderName)
	if err != nil {
		return err
	}
	passport, err := r.enc.EncryptNullable(a.PassportNumber)
	if err != nil {
		return err
	}

	query := `INSERT INTO accounts (id, number, owner_username, holder_name, passport_number, balance,
	          daily_transfer_limit, daily_withdrawal_limit, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err = r.db.ExecContext(ctx, query, a.ID, a.Number, a.OwnerUsername, holder, passport, a.Balance,
		a.DailyTransferLimit, a.DailyWithdrawalLimit, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("lock_account", query, "account_id", id)
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) ListByOwner(ctx context.Context, username string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_username = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *accountRepository) Save(ctx context.Context, a *domain.Account) error {
	query := `UPDATE accounts SET balance = $1, daily_transfer_limit = $2, daily_withdrawal_limit = $3,
	          last_interest_accrual_at = $4, updated_at = $5 WHERE id = $6`
	a.UpdatedAt = time.Now().UTC()

	logger.DatabaseCall("save_account", query, "account_id", a.ID)
	result, err := r.db.ExecContext(ctx, query, a.Balance, a.DailyTransferLimit, a.DailyWithdrawalLimit,
		a.LastInterestAccrualAt, a.UpdatedAt, a.ID)
	if err != nil {
		logger.DatabaseResult("save_account", 0, err)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("save_account", rows, err)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) scan(row rowScanner) (*domain.Account, error) {
	var (
		a           domain.Account
		holder      string
		passport    sql.NullString
		lastAccrual sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Number, &a.OwnerUsername, &holder, &passport, &a.Balance,
		&a.DailyTransferLimit, &a.DailyWithdrawalLimit, &lastAccrual, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.HolderName, err = r.enc.Decrypt(holder); err != nil {
		return nil, fmt.Errorf("account %s holder name: %w", a.ID, err)
	}
	if passport.Valid {
		if a.PassportNumber, err = r.enc.DecryptNullable(&passport.String); err != nil {
			return nil, fmt.Errorf("account %s passport number: %w", a.ID, err)
		}
	}
	if lastAccrual.Valid {
		t := lastAccrual.Time
		a.LastInterestAccrualAt = &t
	}
	return &a, nil
}
