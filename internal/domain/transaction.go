package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// Transaction is an append-only ledger record. At least one of SourceAccountID and
// TargetAccountID is set. LoanID links loan disbursements and repayments; such debits are
// not counted against the account's daily withdrawal limit.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID *uuid.UUID      `json:"source_account_id,omitempty"`
	TargetAccountID *uuid.UUID      `json:"target_account_id,omitempty"`
	LoanID          *uuid.UUID      `json:"loan_id,omitempty"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}
