package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db  *sql.DB
	enc security.FieldEncryptor

	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	loans        repository.LoanRepository
	mappings     repository.MappingRepository
}

// NewStore wires every repository to db. Sensitive columns are encrypted with enc.
func NewStore(db *sql.DB, enc security.FieldEncryptor) *Store {
	return &Store{
		db:           db,
		enc:          enc,
		accounts:     NewAccountRepository(db, enc),
		transactions: NewTransactionRepository(db, enc),
		loans:        NewLoanRepository(db),
		mappings:     NewMappingRepository(db),
	}
}

func (s *Store) Accounts() repository.AccountRepository         { return s.accounts }
func (s *Store) Transactions() repository.TransactionRepository { return s.transactions }
func (s *Store) Loans() repository.LoanRepository               { return s.loans }
func (s *Store) Mappings() repository.MappingRepository         { return s.mappings }

// RunInTx runs fn inside a database transaction. Row locks taken by GetByIDForUpdate are
// held until commit or rollback.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	logger.DatabaseCall("begin", "BEGIN")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &txRepositories{
		accounts:     NewAccountRepository(tx, s.enc),
		transactions: NewTransactionRepository(tx, s.enc),
		loans:        NewLoanRepository(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepositories struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	loans        repository.LoanRepository
}

func (t *txRepositories) Accounts() repository.AccountRepository         { return t.accounts }
func (t *txRepositories) Transactions() repository.TransactionRepository { return t.transactions }
func (t *txRepositories) Loans() repository.LoanRepository               { return t.loans }
