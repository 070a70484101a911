package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

var interestDivisor = decimal.NewFromInt(36500)

// AccountDefaults are applied to every newly opened account. Zero means unlimited.
type AccountDefaults struct {
	DailyTransferLimit   decimal.Decimal
	DailyWithdrawalLimit decimal.Decimal
}

type ledgerService struct {
	store     repository.Store
	defaults  AccountDefaults
	validator *ValidationHelper
	now       func() time.Time
}

func NewLedgerService(store repository.Store, defaults AccountDefaults) LedgerService {
	return &ledgerService{
		store:     store,
		defaults:  defaults,
		validator: NewValidationHelper(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ledgerService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	if err := s.validator.Validate(domain.ErrInvalidAccountRequest, req); err != nil {
		return nil, err
	}

	id := uuid.New()
	account := &domain.Account{
		ID:                   id,
		Number:               security.EncodeAccountNumber(id),
		OwnerUsername:        req.OwnerUsername,
		HolderName:           req.HolderName,
		PassportNumber:       req.PassportNumber,
		Balance:              decimal.Zero,
		DailyTransferLimit:   s.defaults.DailyTransferLimit,
		DailyWithdrawalLimit: s.defaults.DailyWithdrawalLimit,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	logger.Info("Account opened", "accountNumber", account.Number, "owner", account.OwnerUsername)
	return account, nil
}

func (s *ledgerService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	id, err := security.DecodeAccountNumber(accountNumber)
	if err != nil {
		return nil, err
	}

	var tx *domain.Transaction
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		account, err := repos.Accounts().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := creditAccount(ctx, repos, account, amount); err != nil {
			return err
		}
		tx, err = appendTransaction(ctx, repos, domain.TransactionTypeDeposit, amount, nil, account, description, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deposit completed", "accountNumber", accountNumber, "amount", amount, "transactionID", tx.ID)
	return tx, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	id, err := security.DecodeAccountNumber(accountNumber)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var tx *domain.Transaction
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		account, err := repos.Accounts().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if amount.GreaterThan(account.Balance) {
			return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, account.Balance, amount)
		}
		if err := checkDailyLimit(ctx, repos, account, domain.TransactionTypeWithdrawal, amount, now); err != nil {
			return err
		}
		if err := debitAccount(ctx, repos, account, amount); err != nil {
			return err
		}
		tx, err = appendTransaction(ctx, repos, domain.TransactionTypeWithdrawal, amount, account, nil, description, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Withdrawal completed", "accountNumber", accountNumber, "amount", amount, "transactionID", tx.ID)
	return tx, nil
}

func (s *ledgerService) Transfer(ctx context.Context, sourceNumber, targetNumber string, amount decimal.Decimal, description, requestingUser string) (*domain.Transaction, error) {
	logger.EnterMethod("ledgerService.Transfer", "source", sourceNumber, "target", targetNumber, "amount", amount)

	if err := validateAmount(amount); err != nil {
		logger.ExitMethodWithError("ledgerService.Transfer", err)
		return nil, err
	}
	sourceID, err := security.DecodeAccountNumber(sourceNumber)
	if err != nil {
		return nil, err
	}
	targetID, err := security.DecodeAccountNumber(targetNumber)
	if err != nil {
		return nil, err
	}
	if sourceID == targetID {
		return nil, domain.ErrSameAccount
	}

	now := s.now()
	var tx *domain.Transaction
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		locked, err := lockAccountsInOrder(ctx, repos.Accounts(), sourceID, targetID)
		if err != nil {
			return err
		}
		source, target := locked[sourceID], locked[targetID]

		if !source.OwnedBy(requestingUser) {
			return fmt.Errorf("%w: %q does not own account %s", domain.ErrForbidden, requestingUser, sourceNumber)
		}
		if amount.GreaterThan(source.Balance) {
			return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, source.Balance, amount)
		}
		if err := checkDailyLimit(ctx, repos, source, domain.TransactionTypeTransfer, amount, now); err != nil {
			return err
		}

		if err := debitAccount(ctx, repos, source, amount); err != nil {
			return err
		}
		if err := creditAccount(ctx, repos, target, amount); err != nil {
			return err
		}
		tx, err = appendTransaction(ctx, repos, domain.TransactionTypeTransfer, amount, source, target, description, now)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.Transfer", err)
		return nil, err
	}

	logger.ExitMethod("ledgerService.Transfer", "transactionID", tx.ID)
	return tx, nil
}

// ApplyDailyInterest credits interest to every account not yet accrued on the current UTC day.
// Each account is handled in its own unit of work; a failing account does not stop the run.
func (s *ledgerService) ApplyDailyInterest(ctx context.Context, annualRatePercent decimal.Decimal) (*domain.InterestRunResult, error) {
	if annualRatePercent.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative, got %s", domain.ErrInvalidAmount, annualRatePercent)
	}

	ids, err := s.store.Accounts().ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	now := s.now()
	result := &domain.InterestRunResult{RunAt: now}
	description := "Daily interest " + now.Format("2006-01-02")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		credited := false
		err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			account, err := repos.Accounts().GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if account.InterestAccruedOn(now) {
				return nil
			}

			interest := account.Balance.Mul(annualRatePercent).Div(interestDivisor).Round(2)
			stamp := now
			account.LastInterestAccrualAt = &stamp
			if !interest.IsPositive() {
				return repos.Accounts().Save(ctx, account)
			}

			if err := creditAccount(ctx, repos, account, interest); err != nil {
				return err
			}
			if _, err := appendTransaction(ctx, repos, domain.TransactionTypeDeposit, interest, nil, account, description, now); err != nil {
				return err
			}
			credited = true
			return nil
		})

		switch {
		case err != nil:
			result.Failed++
			logger.Error("Interest accrual failed", "accountID", id, "error", err)
		case credited:
			result.Credited++
		default:
			result.Skipped++
		}
	}

	logger.Info("Daily interest applied", "credited", result.Credited, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	id, err := security.DecodeAccountNumber(accountNumber)
	if err != nil {
		return nil, err
	}
	return s.store.Accounts().GetByID(ctx, id)
}

func (s *ledgerService) ListAccountsForOwner(ctx context.Context, username string) ([]domain.Account, error) {
	return s.store.Accounts().ListByOwner(ctx, username)
}

func (s *ledgerService) ListTransactions(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	id, err := security.DecodeAccountNumber(accountNumber)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Accounts().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByAccount(ctx, id)
}

// lockAccountsInOrder takes row locks in ascending id order so that concurrent transfers
// over the same pair of accounts cannot deadlock.
func lockAccountsInOrder(ctx context.Context, accounts repository.AccountRepository, a, b uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	first, second := a, b
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, security.EncodeAccountNumber(id))
			}
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

// checkDailyLimit sums today's outgoing transactions of txType and rejects amount if it would
// push the total past the account's limit.
func checkDailyLimit(ctx context.Context, repos repository.Repositories, account *domain.Account, txType domain.TransactionType, amount decimal.Decimal, now time.Time) error {
	limit := account.DailyWithdrawalLimit
	if txType == domain.TransactionTypeTransfer {
		limit = account.DailyTransferLimit
	}
	if limit.IsZero() {
		return nil
	}

	y, m, d := now.UTC().Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	spent, err := repos.Transactions().SumOutgoingSince(ctx, account.ID, txType, startOfDay)
	if err != nil {
		return fmt.Errorf("failed to sum today's %s transactions: %w", txType, err)
	}
	if spent.Add(amount).GreaterThan(limit) {
		return fmt.Errorf("%w: %s limit %s, already used %s, requested %s",
			domain.ErrDailyLimitExceeded, txType, limit, spent, amount)
	}
	return nil
}

func creditAccount(ctx context.Context, repos repository.Repositories, account *domain.Account, amount decimal.Decimal) error {
	account.Balance = account.Balance.Add(amount)
	return repos.Accounts().Save(ctx, account)
}

func debitAccount(ctx context.Context, repos repository.Repositories, account *domain.Account, amount decimal.Decimal) error {
	if amount.GreaterThan(account.Balance) {
		return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, account.Balance, amount)
	}
	account.Balance = account.Balance.Sub(amount)
	return repos.Accounts().Save(ctx, account)
}

func appendTransaction(ctx context.Context, repos repository.Repositories, txType domain.TransactionType, amount decimal.Decimal,
	source, target *domain.Account, description string, at time.Time) (*domain.Transaction, error) {
	return appendLoanTransaction(ctx, repos, txType, amount, source, target, nil, description, at)
}

// appendLoanTransaction is appendTransaction for money movements that belong to a loan.
func appendLoanTransaction(ctx context.Context, repos repository.Repositories, txType domain.TransactionType, amount decimal.Decimal,
	source, target *domain.Account, loanID *uuid.UUID, description string, at time.Time) (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:          uuid.New(),
		Type:        txType,
		Amount:      amount,
		Description: description,
		CreatedAt:   at,
	}
	if source != nil {
		id := source.ID
		tx.SourceAccountID = &id
	}
	if target != nil {
		id := target.ID
		tx.TargetAccountID = &id
	}
	if loanID != nil {
		id := *loanID
		tx.LoanID = &id
	}
	if err := repos.Transactions().Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append %s transaction: %w", txType, err)
	}
	return tx, nil
}
