package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
)

type LedgerService struct {
	ledger domain.LedgerRepository
}

func NewLedgerService(ledger domain.LedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger}
}

func (s *LedgerService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("ledger service create account request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service create account validation failed", err, nil)
		return validationResponse[models.AccountResponse](err), err
	}

	creator, _ := models.ParseAccount(req.Creator)
	typ := domain.AccountType(strings.ToUpper(strings.TrimSpace(req.Type)))

	account, err := s.ledger.CreateAccount(ctx, typ, creator)
	if err != nil {
		logger.Error("ledger service create account failed", err, logger.Fields{
			"creator": creator,
			"type":    typ,
		})
		return failureResponse[models.AccountResponse](err, "failed to create account", "Unable to create account right now"), err
	}

	response := models.AccountResponse{
		Account: account.String(),
		Type:    string(typ),
		Creator: creator.String(),
	}

	logger.Info("ledger service create account success", logger.Fields{
		"account": account,
		"type":    typ,
	})

	return commons.SuccessResponse("account created successfully", response), nil
}

func (s *LedgerService) GetAccount(ctx context.Context, rawAccount string) (commons.Response[models.AccountResponse], error) {
	logger.Info("ledger service get account request", logger.Fields{
		"account": rawAccount,
	})

	account, err := models.ParseAccount(rawAccount)
	if err != nil {
		return validationResponse[models.AccountResponse](err), err
	}

	typ, err := s.ledger.AccountType(ctx, account)
	if err != nil {
		logger.Error("ledger service get account failed", err, logger.Fields{
			"account": account,
		})
		return failureResponse[models.AccountResponse](err, "failed to get account", "Unable to fetch account right now"), err
	}

	return commons.SuccessResponse("account fetched successfully", models.AccountResponse{
		Account: account.String(),
		Type:    string(typ),
	}), nil
}

func (s *LedgerService) PostTransaction(ctx context.Context, req models.PostTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service post transaction request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("ledger service post transaction validation failed", err, nil)
		return validationResponse[models.TransactionResponse](err), err
	}

	txn, err := req.Transaction()
	if err != nil {
		return validationResponse[models.TransactionResponse](err), err
	}

	finalised, err := s.ledger.Transact(ctx, txn)
	if err != nil {
		logger.Error("ledger service post transaction failed", err, logger.Fields{
			"createdBy": txn.CreatedBy,
			"postings":  len(txn.Postings),
		})
		return failureResponse[models.TransactionResponse](err, "failed to post transaction", "Unable to post transaction right now"), err
	}

	logger.Info("ledger service post transaction success", logger.Fields{
		"time":      finalised.Status.Time,
		"createdBy": finalised.CreatedBy,
	})

	return commons.SuccessResponse("transaction finalised", models.NewTransactionResponse(finalised)), nil
}

func (s *LedgerService) GetBalance(ctx context.Context, rawAccount string, rawToken string) (commons.Response[models.BalanceResponse], error) {
	logger.Info("ledger service get balance request", logger.Fields{
		"account": rawAccount,
		"token":   rawToken,
	})

	account, err := models.ParseAccount(rawAccount)
	if err != nil {
		return validationResponse[models.BalanceResponse](err), err
	}
	token, err := models.ParseToken(rawToken)
	if err != nil {
		return validationResponse[models.BalanceResponse](err), err
	}

	balance, err := s.ledger.AccountBalance(ctx, account, token)
	if err != nil {
		logger.Error("ledger service get balance failed", err, logger.Fields{
			"account": account,
			"token":   token,
		})
		return failureResponse[models.BalanceResponse](err, "failed to get balance", "Unable to fetch balance right now"), err
	}

	return commons.SuccessResponse("balance fetched successfully", models.BalanceResponse{
		Account: account.String(),
		Token:   string(balance.Token),
		Amount:  strconv.FormatInt(balance.Quantity, 10),
	}), nil
}

func (s *LedgerService) GetTransactions(ctx context.Context) (commons.Response[[]models.TransactionResponse], error) {
	logger.Info("ledger service get transactions request", nil)

	txns, err := s.ledger.Transactions(ctx)
	if err != nil {
		logger.Error("ledger service get transactions failed", err, nil)
		return failureResponse[[]models.TransactionResponse](err, "failed to get transactions", "Unable to fetch transactions right now"), err
	}

	response := make([]models.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		response = append(response, models.NewTransactionResponse(txn))
	}

	logger.Info("ledger service get transactions success", logger.Fields{
		"count": len(response),
	})

	return commons.SuccessResponse("transactions fetched successfully", response), nil
}
