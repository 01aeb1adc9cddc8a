package commons

// Error codes carried by failed responses so transports can pick a status
// without parsing messages.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeImbalancedTransaction = "IMBALANCED_TRANSACTION"
	CodeUnknownAccount        = "UNKNOWN_ACCOUNT"
	CodeInvalidPricingInput   = "INVALID_PRICING_INPUT"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL"
)

type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

func CodedErrorResponse[T any](code string, message string, errors ...string) Response[T] {
	response := ErrorResponse[T](message, errors...)
	response.Code = code
	return response
}
