package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
)

type accountRepository struct {
	s   *Store
	uow *unitOfWork
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.put(*cloneAccount(*a))
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if r.uow != nil {
		if a, ok := r.uow.accounts[id]; ok {
			return cloneAccount(a), nil
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if r.uow != nil {
		if err := r.uow.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *accountRepository) ListByOwner(ctx context.Context, username string) ([]domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var accounts []domain.Account
	for _, a := range r.s.accounts {
		if a.OwnerUsername == username {
			accounts = append(accounts, *cloneAccount(a))
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (r *accountRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.s.accounts))
	for id := range r.s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

func (r *accountRepository) Save(ctx context.Context, a *domain.Account) error {
	if _, err := r.GetByID(ctx, a.ID); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	r.put(*cloneAccount(*a))
	return nil
}

func (r *accountRepository) put(a domain.Account) {
	if r.uow != nil {
		r.uow.accounts[a.ID] = a
		return
	}
	r.s.mu.Lock()
	r.s.accounts[a.ID] = a
	r.s.mu.Unlock()
}
