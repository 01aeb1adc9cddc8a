package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps a response error code to the HTTP status clients see.
func statusFor(code string) int {
	switch code {
	case commons.CodeValidationFailed, commons.CodeInvalidPricingInput:
		return http.StatusBadRequest
	case commons.CodeUnknownAccount, commons.CodeNotFound:
		return http.StatusNotFound
	case commons.CodeImbalancedTransaction:
		return http.StatusUnprocessableEntity
	case commons.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeResult[T any](w http.ResponseWriter, r *http.Request, start time.Time, successStatus int, response commons.Response[T], err error) {
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message, "code": response.Code})
		status := statusFor(response.Code)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, successStatus, response)
	logResponse(r, successStatus, response, start)
}

func methodNotAllowed[T any](w http.ResponseWriter, r *http.Request, start time.Time) {
	response := commons.ErrorResponse[T]("method not allowed")
	writeJSON(w, http.StatusMethodNotAllowed, response)
	logResponse(r, http.StatusMethodNotAllowed, response, start)
}

func decodeBody[T any, Req any](w http.ResponseWriter, r *http.Request, start time.Time, req *Req) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logError(r, err, nil)
		response := commons.CodedErrorResponse[T](commons.CodeValidationFailed, "invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	logRequest(r, *req)
	return true
}

func withAuth(handler http.HandlerFunc, authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		return handler
	}
	return authMiddleware(handler)
}
