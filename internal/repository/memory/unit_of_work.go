package memory

import (
	"context"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository"
)

type unitOfWork struct {
	s    *Store
	held map[uuid.UUID]struct{}

	accounts     map[uuid.UUID]domain.Account
	transactions []domain.Transaction
	loans        map[uuid.UUID]domain.Loan
	payments     []domain.Payment
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		s:        s,
		held:     make(map[uuid.UUID]struct{}),
		accounts: make(map[uuid.UUID]domain.Account),
		loans:    make(map[uuid.UUID]domain.Loan),
	}
}

func (u *unitOfWork) Accounts() repository.AccountRepository {
	return &accountRepository{s: u.s, uow: u}
}

func (u *unitOfWork) Transactions() repository.TransactionRepository {
	return &transactionRepository{s: u.s, uow: u}
}

func (u *unitOfWork) Loans() repository.LoanRepository {
	return &loanRepository{s: u.s, uow: u}
}

func (u *unitOfWork) lock(ctx context.Context, id uuid.UUID) error {
	if _, ok := u.held[id]; ok {
		return nil
	}
	if err := u.s.locks.acquire(ctx, id); err != nil {
		return err
	}
	u.held[id] = struct{}{}
	return nil
}

func (u *unitOfWork) commit() {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for id, a := range u.accounts {
		u.s.accounts[id] = a
	}
	u.s.transactions = append(u.s.transactions, u.transactions...)
	for id, l := range u.loans {
		u.s.loans[id] = l
	}
	for _, p := range u.payments {
		u.s.payments[p.LoanID] = append(u.s.payments[p.LoanID], p)
	}
}

func (u *unitOfWork) release() {
	for id := range u.held {
		u.s.locks.release(id)
	}
	u.held = nil
}
