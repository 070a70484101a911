package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
)

type loanRepository struct {
	s   *Store
	uow *unitOfWork
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	now := time.Now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	for i := range loan.Schedule {
		loan.Schedule[i].LoanID = loan.ID
	}
	r.put(*cloneLoan(*loan))
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if r.uow != nil {
		if l, ok := r.uow.loans[id]; ok {
			return cloneLoan(l), nil
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if r.uow != nil {
		if err := r.uow.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	current, err := r.GetByID(ctx, loan.ID)
	if err != nil {
		return err
	}
	current.Status = loan.Status
	current.RemainingBalance = loan.RemainingBalance
	current.UpdatedAt = time.Now().UTC()
	loan.UpdatedAt = current.UpdatedAt
	r.put(*current)
	return nil
}

func (r *loanRepository) ListByOwner(ctx context.Context, username string) ([]domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var loans []domain.Loan
	for _, l := range r.s.loans {
		if a, ok := r.s.accounts[l.OwnerAccountID]; ok && a.OwnerUsername == username {
			loans = append(loans, *cloneLoan(l))
		}
	}
	sortNewestFirst(loans)
	return loans, nil
}

func (r *loanRepository) ListAll(ctx context.Context) ([]domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loans := make([]domain.Loan, 0, len(r.s.loans))
	for _, l := range r.s.loans {
		loans = append(loans, *cloneLoan(l))
	}
	sortNewestFirst(loans)
	return loans, nil
}

func (r *loanRepository) ListSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.PaymentScheduleEntry, error) {
	l, err := r.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return l.Schedule, nil
}

func (r *loanRepository) MarkSchedulePaid(ctx context.Context, loanID uuid.UUID, paymentNumber int) (bool, error) {
	l, err := r.GetByID(ctx, loanID)
	if err != nil {
		return false, err
	}
	for i := range l.Schedule {
		if l.Schedule[i].PaymentNumber == paymentNumber {
			l.Schedule[i].Paid = true
			r.put(*l)
			return true, nil
		}
	}
	return false, nil
}

func (r *loanRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if r.uow != nil {
		r.uow.payments = append(r.uow.payments, *p)
		return nil
	}
	r.s.mu.Lock()
	r.s.payments[p.LoanID] = append(r.s.payments[p.LoanID], *p)
	r.s.mu.Unlock()
	return nil
}

func (r *loanRepository) ListPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error) {
	r.s.mu.Lock()
	payments := append([]domain.Payment(nil), r.s.payments[loanID]...)
	r.s.mu.Unlock()

	if r.uow != nil {
		for _, p := range r.uow.payments {
			if p.LoanID == loanID {
				payments = append(payments, p)
			}
		}
	}
	return payments, nil
}

func (r *loanRepository) put(l domain.Loan) {
	if r.uow != nil {
		r.uow.loans[l.ID] = l
		return
	}
	r.s.mu.Lock()
	r.s.loans[l.ID] = l
	r.s.mu.Unlock()
}

func sortNewestFirst(loans []domain.Loan) {
	sort.SliceStable(loans, func(i, j int) bool { return loans[i].CreatedAt.After(loans[j].CreatedAt) })
}
