package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

// rateScale matches the annual_rate NUMERIC(7, 4) column.
const rateScale int32 = 4

var (
	monthsPerYearPercent = decimal.NewFromInt(1200)
	// precision kept for the compounding factor while building a schedule
	factorPrecision int32 = 20
)

type loanService struct {
	store     repository.Store
	validator *ValidationHelper
	now       func() time.Time
}

func NewLoanService(store repository.Store) LoanService {
	return &loanService{
		store:     store,
		validator: NewValidationHelper(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *loanService) CreateLoan(ctx context.Context, app LoanApplication) (*domain.Loan, error) {
	logger.EnterMethod("loanService.CreateLoan", "owner", app.OwnerAccountNumber, "principal", app.Principal, "termMonths", app.TermMonths)

	if err := s.validator.Validate(domain.ErrInvalidLoanApplication, app); err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err)
		return nil, err
	}
	if err := validateAmount(app.Principal); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidLoanApplication, err)
	}
	if !app.AnnualRate.Equal(app.AnnualRate.Truncate(rateScale)) {
		return nil, fmt.Errorf("%w: annual rate allows at most %d decimal places", domain.ErrInvalidLoanApplication, rateScale)
	}
	ownerID, err := security.DecodeAccountNumber(app.OwnerAccountNumber)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:               uuid.New(),
		Principal:        app.Principal,
		AnnualRate:       app.AnnualRate,
		StartDate:        app.StartDate.UTC(),
		TermMonths:       app.TermMonths,
		Status:           domain.LoanStatusPending,
		RemainingBalance: app.Principal,
		OwnerAccountID:   ownerID,
	}
	loan.Schedule = BuildSchedule(loan.ID, loan.Principal, loan.AnnualRate, loan.StartDate, loan.TermMonths)

	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Accounts().GetByID(ctx, ownerID); err != nil {
			return err
		}
		return repos.Loans().Create(ctx, loan)
	})
	if err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err)
		return nil, err
	}

	logger.ExitMethod("loanService.CreateLoan", "loanID", loan.ID)
	return loan, nil
}

// BuildSchedule produces a declining-balance amortization schedule. Every entry pays the
// same rounded installment except the last, which absorbs rounding so the final remaining
// balance is exactly zero.
func BuildSchedule(loanID uuid.UUID, principal, annualRatePercent decimal.Decimal, start time.Time, termMonths int) []domain.PaymentScheduleEntry {
	r := annualRatePercent.Div(monthsPerYearPercent)
	payment := MonthlyPayment(principal, annualRatePercent, termMonths)

	schedule := make([]domain.PaymentScheduleEntry, 0, termMonths)
	remaining := principal
	for i := 1; i <= termMonths; i++ {
		interest := remaining.Mul(r).Round(2)
		principalPart := payment.Sub(interest)
		if i == termMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, domain.PaymentScheduleEntry{
			LoanID:           loanID,
			PaymentNumber:    i,
			DueDate:          start.AddDate(0, i, 0),
			PrincipalPart:    principalPart,
			InterestPart:     interest,
			TotalPayment:     principalPart.Add(interest),
			RemainingBalance: remaining,
		})
	}
	return schedule
}

// MonthlyPayment returns P·r / (1 − (1+r)^−n) rounded to cents, with r the monthly rate.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	r := annualRatePercent.Div(monthsPerYearPercent)
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2)
	}

	factor := decimal.NewFromInt(1)
	onePlusR := factor.Add(r)
	for i := 0; i < termMonths; i++ {
		factor = factor.Mul(onePlusR).Round(factorPrecision)
	}
	return principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1))).Round(2)
}

func (s *loanService) ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var approved *domain.Loan
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		loan, err := repos.Loans().GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransitionTo(domain.LoanStatusApproved) {
			return fmt.Errorf("%w: cannot approve a %s loan", domain.ErrInvalidLoanState, loan.Status)
		}

		account, err := repos.Accounts().GetByIDForUpdate(ctx, loan.OwnerAccountID)
		if err != nil {
			return err
		}
		if err := creditAccount(ctx, repos, account, loan.Principal); err != nil {
			return err
		}
		description := fmt.Sprintf("Loan disbursement %s", loan.ID)
		if _, err := appendLoanTransaction(ctx, repos, domain.TransactionTypeDeposit, loan.Principal, nil, account, &loan.ID, description, s.now()); err != nil {
			return err
		}

		loan.Status = domain.LoanStatusApproved
		if err := repos.Loans().Update(ctx, loan); err != nil {
			return err
		}
		approved = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan approved", "loanID", loanID, "principal", approved.Principal)
	return approved, nil
}

func (s *loanService) RejectLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var rejected *domain.Loan
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		loan, err := repos.Loans().GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransitionTo(domain.LoanStatusRejected) {
			return fmt.Errorf("%w: cannot reject a %s loan", domain.ErrInvalidLoanState, loan.Status)
		}
		loan.Status = domain.LoanStatusRejected
		if err := repos.Loans().Update(ctx, loan); err != nil {
			return err
		}
		rejected = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan rejected", "loanID", loanID)
	return rejected, nil
}

// RecordPayment moves amount from the payer's account onto the loan. The withdrawal, the
// payment record, the schedule update and the loan balance commit together or not at all.
func (s *loanService) RecordPayment(ctx context.Context, loanID uuid.UUID, paymentNumber int, amount decimal.Decimal, payerAccountNumber, requestingUser string) (*domain.Payment, error) {
	logger.EnterMethod("loanService.RecordPayment", "loanID", loanID, "paymentNumber", paymentNumber, "amount", amount)

	if err := validateAmount(amount); err != nil {
		logger.ExitMethodWithError("loanService.RecordPayment", err)
		return nil, err
	}
	payerID, err := security.DecodeAccountNumber(payerAccountNumber)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var payment *domain.Payment
	var loanStatus domain.LoanStatus
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		loan, err := repos.Loans().GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusApproved {
			return fmt.Errorf("%w: loan is %s", domain.ErrLoanNotApproved, loan.Status)
		}

		payer, err := repos.Accounts().GetByIDForUpdate(ctx, payerID)
		if err != nil {
			return err
		}
		if !payer.OwnedBy(requestingUser) {
			return fmt.Errorf("%w: %q does not own account %s", domain.ErrForbidden, requestingUser, payerAccountNumber)
		}
		if amount.GreaterThan(payer.Balance) {
			return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, payer.Balance, amount)
		}
		if amount.GreaterThan(loan.RemainingBalance) {
			return fmt.Errorf("%w: remaining %s, paid %s", domain.ErrOverPayment, loan.RemainingBalance, amount)
		}

		payment, err = applyPayment(ctx, repos, loan, payer, paymentNumber, amount, now)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrPaymentProcessing, err)
		}
		loanStatus = loan.Status
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("loanService.RecordPayment", err, "loanID", loanID)
		return nil, err
	}

	logger.ExitMethod("loanService.RecordPayment", "loanID", loanID, "paymentID", payment.ID, "status", loanStatus)
	return payment, nil
}

func applyPayment(ctx context.Context, repos repository.Repositories, loan *domain.Loan, payer *domain.Account,
	paymentNumber int, amount decimal.Decimal, now time.Time) (*domain.Payment, error) {
	if err := debitAccount(ctx, repos, payer, amount); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Loan payment %s #%d", loan.ID, paymentNumber)
	if _, err := appendLoanTransaction(ctx, repos, domain.TransactionTypeWithdrawal, amount, payer, nil, &loan.ID, description, now); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		LoanID:        loan.ID,
		PaymentNumber: paymentNumber,
		Amount:        amount,
		PaidAt:        now,
	}
	if err := repos.Loans().CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	found, err := repos.Loans().MarkSchedulePaid(ctx, loan.ID, paymentNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to mark schedule entry %d paid: %w", paymentNumber, err)
	}
	if !found {
		logger.Warn("Payment does not match a schedule entry", "loanID", loan.ID, "paymentNumber", paymentNumber)
	}

	loan.RemainingBalance = loan.RemainingBalance.Sub(amount)
	if !loan.RemainingBalance.IsPositive() {
		loan.Status = domain.LoanStatusPaid
	}
	if err := repos.Loans().Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	return payment, nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.store.Loans().GetByID(ctx, loanID)
}

func (s *loanService) GetLoansForOwner(ctx context.Context, username string) ([]domain.Loan, error) {
	return s.store.Loans().ListByOwner(ctx, username)
}

func (s *loanService) GetAllLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.store.Loans().ListAll(ctx)
}

// ReconcileLoans compares every loan's stored state with its recorded payments and reports
// the loans that disagree. It never modifies anything.
func (s *loanService) ReconcileLoans(ctx context.Context) ([]domain.LoanDiscrepancy, error) {
	loans, err := s.store.Loans().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	var report []domain.LoanDiscrepancy
	for _, loan := range loans {
		payments, err := s.store.Loans().ListPayments(ctx, loan.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list payments for loan %s: %w", loan.ID, err)
		}
		for _, reason := range loanDiscrepancies(loan, payments) {
			logger.Warn("Loan discrepancy", "loanID", loan.ID, "status", loan.Status, "reason", reason)
			report = append(report, domain.LoanDiscrepancy{LoanID: loan.ID.String(), Reason: reason})
		}
	}

	logger.Info("Loan reconciliation finished", "loans", len(loans), "discrepancies", len(report))
	return report, nil
}

func loanDiscrepancies(loan domain.Loan, payments []domain.Payment) []string {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	var reasons []string
	switch loan.Status {
	case domain.LoanStatusPending, domain.LoanStatusRejected:
		if len(payments) > 0 {
			reasons = append(reasons, fmt.Sprintf("%d payments recorded against a %s loan", len(payments), loan.Status))
		}
		if !loan.RemainingBalance.Equal(loan.Principal) {
			reasons = append(reasons, fmt.Sprintf("remaining balance %s differs from principal %s", loan.RemainingBalance, loan.Principal))
		}
	case domain.LoanStatusApproved, domain.LoanStatusPaid:
		expected := loan.Principal.Sub(paid)
		if !loan.RemainingBalance.Equal(expected) {
			reasons = append(reasons, fmt.Sprintf("remaining balance %s, expected %s from payments", loan.RemainingBalance, expected))
		}
		settled := !loan.RemainingBalance.IsPositive()
		if loan.Status == domain.LoanStatusPaid && !settled {
			reasons = append(reasons, fmt.Sprintf("loan marked PAID with %s outstanding", loan.RemainingBalance))
		}
		if loan.Status == domain.LoanStatusApproved && settled {
			reasons = append(reasons, "loan fully repaid but not marked PAID")
		}
	}
	return reasons
}
