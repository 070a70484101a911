package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
)

const loanColumns = `l.id, l.principal, l.annual_rate, l.start_date, l.term_months, l.status,
	l.remaining_balance, l.owner_account_id, l.created_at, l.updated_at`

const scheduleColumns = `loan_id, payment_number, due_date, principal_part, interest_part,
	total_payment, remaining_balance, paid`

type loanRepository struct {
	db dbtx
}

func NewLoanRepository(db dbtx) repository.LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	logger.EnterMethod("loanRepository.Create", "loanID", loan.ID, "entries", len(loan.Schedule))

	now := time.Now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	query := `INSERT INTO loans (id, principal, annual_rate, start_date, term_months, status,
	          remaining_balance, owner_account_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, loan.ID, loan.Principal, loan.AnnualRate, loan.StartDate, loan.TermMonths,
		loan.Status, loan.RemainingBalance, loan.OwnerAccountID, loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("loanRepository.Create", err, "loanID", loan.ID)
		return err
	}

	entryQuery := `INSERT INTO loan_schedule (` + scheduleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, e := range loan.Schedule {
		_, err := r.db.ExecContext(ctx, entryQuery, loan.ID, e.PaymentNumber, e.DueDate, e.PrincipalPart,
			e.InterestPart, e.TotalPayment, e.RemainingBalance, e.Paid)
		if err != nil {
			logger.ExitMethodWithError("loanRepository.Create", err, "loanID", loan.ID, "paymentNumber", e.PaymentNumber)
			return err
		}
	}

	logger.ExitMethod("loanRepository.Create", "loanID", loan.ID)
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.id = $1`, id)
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.id = $1 FOR UPDATE`, id)
}

func (r *loanRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Loan, error) {
	loan, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}

	loan.Schedule, err = r.ListSchedule(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = time.Now().UTC()
	query := `UPDATE loans SET status = $1, remaining_balance = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, loan.Status, loan.RemainingBalance, loan.UpdatedAt, loan.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *loanRepository) ListByOwner(ctx context.Context, username string) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans l
	          JOIN accounts a ON a.id = l.owner_account_id
	          WHERE a.owner_username = $1 ORDER BY l.created_at DESC`
	return r.list(ctx, query, username)
}

func (r *loanRepository) ListAll(ctx context.Context) ([]domain.Loan, error) {
	return r.list(ctx, `SELECT `+loanColumns+` FROM loans l ORDER BY l.created_at DESC`)
}

func (r *loanRepository) list(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return loans, nil
	}

	if err := r.attachSchedules(ctx, loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// attachSchedules loads the schedules of all loans in one query.
func (r *loanRepository) attachSchedules(ctx context.Context, loans []domain.Loan) error {
	ids := make([]string, len(loans))
	index := make(map[uuid.UUID]int, len(loans))
	for i, l := range loans {
		ids[i] = l.ID.String()
		index[l.ID] = i
	}

	query := `SELECT ` + scheduleColumns + ` FROM loan_schedule
	          WHERE loan_id = ANY($1::uuid[]) ORDER BY loan_id, payment_number`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return err
		}
		if i, ok := index[e.LoanID]; ok {
			loans[i].Schedule = append(loans[i].Schedule, *e)
		}
	}
	return rows.Err()
}

func (r *loanRepository) ListSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.PaymentScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + ` FROM loan_schedule WHERE loan_id = $1 ORDER BY payment_number`
	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PaymentScheduleEntry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *loanRepository) MarkSchedulePaid(ctx context.Context, loanID uuid.UUID, paymentNumber int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE loan_schedule SET paid = TRUE WHERE loan_id = $1 AND payment_number = $2`, loanID, paymentNumber)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *loanRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	query := `INSERT INTO loan_payments (id, loan_id, payment_number, amount, paid_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.LoanID, p.PaymentNumber, p.Amount, p.PaidAt)
	return err
}

func (r *loanRepository) ListPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error) {
	query := `SELECT id, loan_id, payment_number, amount, paid_at FROM loan_payments WHERE loan_id = $1 ORDER BY paid_at`
	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.PaymentNumber, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(&l.ID, &l.Principal, &l.AnnualRate, &l.StartDate, &l.TermMonths, &l.Status,
		&l.RemainingBalance, &l.OwnerAccountID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanScheduleEntry(row rowScanner) (*domain.PaymentScheduleEntry, error) {
	var e domain.PaymentScheduleEntry
	err := row.Scan(&e.LoanID, &e.PaymentNumber, &e.DueDate, &e.PrincipalPart, &e.InterestPart,
		&e.TotalPayment, &e.RemainingBalance, &e.Paid)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
