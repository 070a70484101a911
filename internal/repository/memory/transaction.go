package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
)

type transactionRepository struct {
	s   *Store
	uow *unitOfWork
}

func (r *transactionRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if r.uow != nil {
		r.uow.transactions = append(r.uow.transactions, *tx)
		return nil
	}
	r.s.mu.Lock()
	r.s.transactions = append(r.s.transactions, *tx)
	r.s.mu.Unlock()
	return nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for _, tx := range r.visible() {
		if touches(tx, accountID) {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

func (r *transactionRepository) SumOutgoingSince(ctx context.Context, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.visible() {
		if tx.LoanID != nil {
			continue
		}
		if tx.Type == txType && tx.SourceAccountID != nil && *tx.SourceAccountID == accountID && !tx.CreatedAt.Before(since) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (r *transactionRepository) visible() []domain.Transaction {
	r.s.mu.Lock()
	txs := append([]domain.Transaction(nil), r.s.transactions...)
	r.s.mu.Unlock()
	if r.uow != nil {
		txs = append(txs, r.uow.transactions...)
	}
	return txs
}

func touches(tx domain.Transaction, accountID uuid.UUID) bool {
	return (tx.SourceAccountID != nil && *tx.SourceAccountID == accountID) ||
		(tx.TargetAccountID != nil && *tx.TargetAccountID == accountID)
}
