package services

import "errors"

var (
	// ErrInvalidAmount is returned when the transfer amount is not positive
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrSelfTransfer is returned when sender and recipient are the same account
	ErrSelfTransfer = errors.New("self-transfer is not supported")

	// ErrCurrencyMismatch is returned when the two accounts hold different currencies
	ErrCurrencyMismatch = errors.New("currency mismatch between sender and recipient accounts")

	// ErrInsufficientBalance is returned when the sender balance would go negative
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransferFailed wraps any storage failure inside the transfer unit of work
	ErrTransferFailed = errors.New("transfer failed")

	ErrAccountNotFound = errors.New("account not found")
	ErrCardNotFound    = errors.New("card not found")

	// ErrSenderRestricted is returned when the sender has no account or no card
	ErrSenderRestricted = errors.New("sender must have a payment account and at least one card")

	// ErrRecipientRestricted is returned when the recipient has no account or no card
	ErrRecipientRestricted = errors.New("recipient must have a payment account and at least one card")
)
