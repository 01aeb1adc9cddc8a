package services

import (
	"errors"

	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
)

// failureResponse translates domain errors into a coded response. Anything
// unrecognised is reported as internal with the caller's generic message.
func failureResponse[T any](err error, message string, detail string) commons.Response[T] {
	switch {
	case errors.Is(err, domain.ErrImbalancedTransaction):
		return commons.CodedErrorResponse[T](commons.CodeImbalancedTransaction, "transaction rejected", err.Error())
	case errors.Is(err, domain.ErrUnknownAccount):
		return commons.CodedErrorResponse[T](commons.CodeUnknownAccount, "account not found", err.Error())
	case errors.Is(err, domain.ErrInvalidPricingInput):
		return commons.CodedErrorResponse[T](commons.CodeInvalidPricingInput, "invalid pricing input", err.Error())
	case errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidTransactionKind),
		errors.Is(err, domain.ErrTransactionNotProposed):
		return commons.CodedErrorResponse[T](commons.CodeValidationFailed, "validation failed", err.Error())
	case errors.Is(err, domain.ErrBalanceOverflow), errors.Is(err, domain.ErrInvariantDrift):
		return commons.CodedErrorResponse[T](commons.CodeConflict, message, err.Error())
	case errors.Is(err, domain.ErrRecordNotFound):
		return commons.CodedErrorResponse[T](commons.CodeNotFound, "record not found")
	default:
		return commons.CodedErrorResponse[T](commons.CodeInternal, message, detail)
	}
}

func validationResponse[T any](err error) commons.Response[T] {
	return commons.CodedErrorResponse[T](commons.CodeValidationFailed, "validation failed", err.Error())
}
