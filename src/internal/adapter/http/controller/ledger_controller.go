package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
)

type LedgerService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, account string) (commons.Response[models.AccountResponse], error)
	PostTransaction(ctx context.Context, req models.PostTransactionRequest) (commons.Response[models.TransactionResponse], error)
	GetBalance(ctx context.Context, account string, token string) (commons.Response[models.BalanceResponse], error)
	GetTransactions(ctx context.Context) (commons.Response[[]models.TransactionResponse], error)
}

type LedgerController struct {
	service LedgerService
}

func NewLedgerController(service LedgerService) *LedgerController {
	return &LedgerController{service: service}
}

func (c *LedgerController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/accounts", withAuth(c.accounts, authMiddleware))
	mux.Handle("/transactions", withAuth(c.transactions, authMiddleware))
	mux.Handle("/balances", withAuth(c.balance, authMiddleware))
}

func (c *LedgerController) accounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	switch r.Method {
	case http.MethodPost:
		var req models.CreateAccountRequest
		if !decodeBody[models.AccountResponse](w, r, start, &req) {
			return
		}
		response, err := c.service.CreateAccount(r.Context(), req)
		writeResult(w, r, start, http.StatusCreated, response, err)
	case http.MethodGet:
		response, err := c.service.GetAccount(r.Context(), r.URL.Query().Get("account"))
		writeResult(w, r, start, http.StatusOK, response, err)
	default:
		methodNotAllowed[models.AccountResponse](w, r, start)
	}
}

func (c *LedgerController) transactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	switch r.Method {
	case http.MethodPost:
		var req models.PostTransactionRequest
		if !decodeBody[models.TransactionResponse](w, r, start, &req) {
			return
		}
		response, err := c.service.PostTransaction(r.Context(), req)
		writeResult(w, r, start, http.StatusCreated, response, err)
	case http.MethodGet:
		response, err := c.service.GetTransactions(r.Context())
		writeResult(w, r, start, http.StatusOK, response, err)
	default:
		methodNotAllowed[models.TransactionResponse](w, r, start)
	}
}

func (c *LedgerController) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		methodNotAllowed[models.BalanceResponse](w, r, start)
		return
	}

	query := r.URL.Query()
	response, err := c.service.GetBalance(r.Context(), query.Get("account"), query.Get("token"))
	writeResult(w, r, start, http.StatusOK, response, err)
}
