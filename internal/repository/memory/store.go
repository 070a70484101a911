// Package memory is an in-process storage backend. It mirrors the postgres store's
// unit-of-work and row locking semantics and backs the "memory" database driver.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/repository"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]domain.Account
	transactions []domain.Transaction
	loans        map[uuid.UUID]domain.Loan
	payments     map[uuid.UUID][]domain.Payment
	mappings     map[string]domain.AnonymizedMapping
	tokens       map[string]string

	locks *rowLocks
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		loans:    make(map[uuid.UUID]domain.Loan),
		payments: make(map[uuid.UUID][]domain.Payment),
		mappings: make(map[string]domain.AnonymizedMapping),
		tokens:   make(map[string]string),
		locks:    newRowLocks(),
	}
}

func (s *Store) Accounts() repository.AccountRepository         { return &accountRepository{s: s} }
func (s *Store) Transactions() repository.TransactionRepository { return &transactionRepository{s: s} }
func (s *Store) Loans() repository.LoanRepository               { return &loanRepository{s: s} }
func (s *Store) Mappings() repository.MappingRepository         { return &mappingRepository{s: s} }

// RunInTx stages every write made through repos and applies them in one step when fn
// succeeds. Rows locked with GetByIDForUpdate stay locked until RunInTx returns.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	uow := newUnitOfWork(s)
	defer uow.release()

	if err := fn(ctx, uow); err != nil {
		return err
	}
	uow.commit()
	return nil
}

// rowLocks hands out one lock per row id. A lock is a buffered channel so waiting can be
// abandoned when the context is cancelled. A slot lives only while some unit of work holds
// or waits for it.
type rowLocks struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int // holder plus waiters
}

func newRowLocks() *rowLocks {
	return &rowLocks{slots: make(map[uuid.UUID]*lockSlot)}
}

func (l *rowLocks) join(id uuid.UUID) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	return slot
}

func (l *rowLocks) leave(id uuid.UUID, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}

func (l *rowLocks) acquire(ctx context.Context, id uuid.UUID) error {
	slot := l.join(id)
	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.leave(id, slot)
		return ctx.Err()
	}
}

func (l *rowLocks) release(id uuid.UUID) {
	l.mu.Lock()
	slot := l.slots[id]
	l.mu.Unlock()
	<-slot.ch
	l.leave(id, slot)
}

func (l *rowLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func cloneAccount(a domain.Account) *domain.Account {
	if a.PassportNumber != nil {
		p := *a.PassportNumber
		a.PassportNumber = &p
	}
	if a.LastInterestAccrualAt != nil {
		t := *a.LastInterestAccrualAt
		a.LastInterestAccrualAt = &t
	}
	return &a
}

func cloneLoan(l domain.Loan) *domain.Loan {
	l.Schedule = append([]domain.PaymentScheduleEntry(nil), l.Schedule...)
	return &l
}
