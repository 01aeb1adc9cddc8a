package domain

import "errors"

var ErrRecordNotFound = errors.New("Record not found")

var (
	ErrImbalancedTransaction  = errors.New("imbalanced transaction")
	ErrUnknownAccount         = errors.New("unknown account")
	ErrInvalidPricingInput    = errors.New("invalid pricing input")
	ErrTransactionNotProposed = errors.New("transaction is not in proposed state")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrBalanceOverflow        = errors.New("account balance overflow")
	ErrInvariantDrift         = errors.New("pool invariant drift")
)
