package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a customer deposit account. Balance never goes below zero and is only
// changed by the ledger service.
type Account struct {
	ID                    uuid.UUID       `json:"id"`
	Number                string          `json:"number"`
	OwnerUsername         string          `json:"owner_username"`
	HolderName            string          `json:"holder_name"`
	PassportNumber        *string         `json:"passport_number,omitempty"`
	Balance               decimal.Decimal `json:"balance"`
	DailyTransferLimit    decimal.Decimal `json:"daily_transfer_limit"`
	DailyWithdrawalLimit  decimal.Decimal `json:"daily_withdrawal_limit"`
	LastInterestAccrualAt *time.Time      `json:"last_interest_accrual_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// OwnedBy reports whether username owns the account.
func (a *Account) OwnedBy(username string) bool {
	return username != "" && a.OwnerUsername == username
}

// InterestAccruedOn reports whether interest was already accrued on the UTC calendar day of t.
func (a *Account) InterestAccruedOn(t time.Time) bool {
	if a.LastInterestAccrualAt == nil {
		return false
	}
	ly, lm, ld := a.LastInterestAccrualAt.UTC().Date()
	y, m, d := t.UTC().Date()
	return ly == y && lm == m && ld == d
}
