package domain

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountNotFound      = errors.New("account not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidLoanState     = errors.New("invalid loan state")
	ErrLoanNotApproved      = errors.New("loan not approved")
	ErrOverPayment          = errors.New("payment exceeds remaining loan balance")
	ErrDecryptionFailed     = errors.New("decryption failed")
	ErrInvalidAccountNumber = errors.New("invalid account number")
	ErrConfiguration        = errors.New("configuration error")

	ErrPaymentProcessing      = errors.New("payment processing failed")
	ErrDailyLimitExceeded     = errors.New("daily limit exceeded")
	ErrSameAccount            = errors.New("source and target account are the same")
	ErrMappingNotFound        = errors.New("pseudonym mapping not found")
	ErrDuplicateMapping       = errors.New("pseudonym mapping already exists")
	ErrInvalidLoanApplication = errors.New("invalid loan application")
	ErrInvalidAccountRequest  = errors.New("invalid account request")
)
