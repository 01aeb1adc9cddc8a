package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/usecase/services"
)

func createAccount(t *testing.T, svc *services.LedgerService, typ string) string {
	t.Helper()
	resp, err := svc.CreateAccount(context.Background(), models.CreateAccountRequest{Type: typ, Creator: "0"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return resp.Data.Account
}

func TestLedgerServiceCreateAccountValidationError(t *testing.T) {
	svc := services.NewLedgerService(nil)

	resp, err := svc.CreateAccount(context.Background(), models.CreateAccountRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create account request")
	}
	if resp.Code != commons.CodeValidationFailed {
		t.Fatalf("expected %s, got %s", commons.CodeValidationFailed, resp.Code)
	}
}

func TestLedgerServiceCreateAccountUnknownCreator(t *testing.T) {
	svc := services.NewLedgerService(memory.NewLedgerRepository())

	resp, err := svc.CreateAccount(context.Background(), models.CreateAccountRequest{Type: "user", Creator: "12"})
	if !errors.Is(err, domain.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if resp.Code != commons.CodeUnknownAccount {
		t.Fatalf("expected %s, got %s", commons.CodeUnknownAccount, resp.Code)
	}
}

func TestLedgerServicePostTransaction(t *testing.T) {
	ctx := context.Background()
	svc := services.NewLedgerService(memory.NewIndexedLedgerRepository())
	a := createAccount(t, svc, "USER")
	b := createAccount(t, svc, "USER")

	resp, err := svc.PostTransaction(ctx, models.PostTransactionRequest{
		CreatedBy: a,
		Memo:      "lunch",
		Postings: []models.PostingRequest{
			{Account: a, Amount: "50"},
			{Account: b, Token: "site_currency", Amount: "-50"},
		},
	})
	if err != nil {
		t.Fatalf("post transaction: %v", err)
	}
	if resp.Data.Status != string(domain.TransactionStateFinalised) || resp.Data.Time != 3 {
		t.Fatalf("unexpected transaction %+v", resp.Data)
	}

	balance, err := svc.GetBalance(ctx, a, "")
	if err != nil || balance.Data.Amount != "50" {
		t.Fatalf("expected A balance 50, got %+v (%v)", balance.Data, err)
	}
	balance, err = svc.GetBalance(ctx, b, "SITE_CURRENCY")
	if err != nil || balance.Data.Amount != "-50" {
		t.Fatalf("expected B balance -50, got %+v (%v)", balance.Data, err)
	}
}

func TestLedgerServicePostTransactionImbalanced(t *testing.T) {
	ctx := context.Background()
	svc := services.NewLedgerService(memory.NewLedgerRepository())
	a := createAccount(t, svc, "USER")
	b := createAccount(t, svc, "USER")

	resp, err := svc.PostTransaction(ctx, models.PostTransactionRequest{
		CreatedBy: a,
		Postings: []models.PostingRequest{
			{Account: a, Amount: "30"},
			{Account: b, Amount: "-20"},
		},
	})
	if !errors.Is(err, domain.ErrImbalancedTransaction) {
		t.Fatalf("expected ErrImbalancedTransaction, got %v", err)
	}
	if resp.Code != commons.CodeImbalancedTransaction {
		t.Fatalf("expected %s, got %s", commons.CodeImbalancedTransaction, resp.Code)
	}

	txns, err := svc.GetTransactions(ctx)
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}
	if len(*txns.Data) != 3 {
		t.Fatalf("expected 3 logged transactions, got %d", len(*txns.Data))
	}
}

func TestLedgerServicePostTransactionRejectsFractionalAmounts(t *testing.T) {
	svc := services.NewLedgerService(memory.NewLedgerRepository())

	_, err := svc.PostTransaction(context.Background(), models.PostTransactionRequest{
		CreatedBy: "0",
		Postings: []models.PostingRequest{
			{Account: "0", Amount: "1.5"},
			{Account: "0", Amount: "-1.5"},
		},
	})
	if err == nil {
		t.Fatal("expected validation error for fractional amounts")
	}
}

func TestLedgerServiceGetBalanceEmptyLedger(t *testing.T) {
	svc := services.NewLedgerService(memory.NewLedgerRepository())

	resp, err := svc.GetBalance(context.Background(), "31", "SITE_CURRENCY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data.Amount != "0" {
		t.Fatalf("expected zero balance, got %s", resp.Data.Amount)
	}
}

func TestLedgerServiceGetAccount(t *testing.T) {
	svc := services.NewLedgerService(memory.NewLedgerRepository())
	account := createAccount(t, svc, "bonus_source")

	resp, err := svc.GetAccount(context.Background(), account)
	if err != nil || resp.Data.Type != string(domain.AccountTypeBonusSource) {
		t.Fatalf("expected BONUS_SOURCE, got %+v (%v)", resp.Data, err)
	}

	if _, err := svc.GetAccount(context.Background(), "900"); !errors.Is(err, domain.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}
