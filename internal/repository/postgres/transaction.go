package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

type transactionRepository struct {
	db  dbtx
	enc security.FieldEncryptor
}

func NewTransactionRepository(db dbtx, enc security.FieldEncryptor) repository.TransactionRepository {
	return &transactionRepository{db: db, enc: enc}
}

// Append inserts tx. Descriptions are stored encrypted.
func (r *transactionRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	description, err := r.enc.Encrypt(tx.Description)
	if err != nil {
		return err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO transactions (id, type, amount, source_account_id, target_account_id, loan_id, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.ExecContext(ctx, query, tx.ID, tx.Type, tx.Amount, tx.SourceAccountID, tx.TargetAccountID, tx.LoanID, description, tx.CreatedAt)
	return err
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT id, type, amount, source_account_id, target_account_id, loan_id, description, created_at
	          FROM transactions WHERE source_account_id = $1 OR target_account_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			tx          domain.Transaction
			source      uuid.NullUUID
			target      uuid.NullUUID
			loanID      uuid.NullUUID
			description string
		)
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Amount, &source, &target, &loanID, &description, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if source.Valid {
			tx.SourceAccountID = &source.UUID
		}
		if target.Valid {
			tx.TargetAccountID = &target.UUID
		}
		if loanID.Valid {
			tx.LoanID = &loanID.UUID
		}
		if tx.Description, err = r.enc.Decrypt(description); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SumOutgoingSince totals the account's own debits of txType since the given instant.
// Loan-linked transactions are excluded.
func (r *transactionRepository) SumOutgoingSince(ctx context.Context, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
	          WHERE source_account_id = $1 AND type = $2 AND created_at >= $3 AND loan_id IS NULL`
	err := r.db.QueryRowContext(ctx, query, accountID, txType, since).Scan(&total)
	return total, err
}
