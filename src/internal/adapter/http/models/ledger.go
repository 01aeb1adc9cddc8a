package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// ParseAccount parses a decimal account id.
func ParseAccount(raw string) (domain.Account, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("account %q must be a non-negative integer", raw)
	}
	return domain.Account(id), nil
}

// ParseAmount parses a signed whole number of tokens. Amounts are sent as
// strings so clients never round them through a float.
func ParseAmount(raw string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("amount %q must be numeric", raw)
	}
	if !amount.IsInteger() {
		return 0, fmt.Errorf("amount %q must be a whole number", raw)
	}
	if amount.GreaterThan(maxAmount) || amount.LessThan(minAmount) {
		return 0, fmt.Errorf("amount %q is out of range", raw)
	}
	return amount.IntPart(), nil
}

func ParseToken(raw string) (domain.Token, error) {
	token := domain.Token(strings.ToUpper(strings.TrimSpace(raw)))
	if token == "" {
		return domain.TokenSiteCurrency, nil
	}
	if !token.Valid() {
		return "", fmt.Errorf("token %q is not supported", raw)
	}
	return token, nil
}

type CreateAccountRequest struct {
	Type    string `json:"type"`
	Creator string `json:"creator"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	typ := domain.AccountType(strings.ToUpper(strings.TrimSpace(r.Type)))
	if typ == "" {
		errs = append(errs, "type is required")
	} else if !typ.Valid() || typ == domain.AccountTypeSystem {
		errs = append(errs, "type must be one of USER, CONTRACT, BONUS_SOURCE")
	}

	if strings.TrimSpace(r.Creator) == "" {
		errs = append(errs, "creator is required")
	} else if _, err := ParseAccount(r.Creator); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	Account string `json:"account"`
	Type    string `json:"type"`
	Creator string `json:"creator,omitempty"`
}

type PostingRequest struct {
	Account string `json:"account"`
	Token   string `json:"token,omitempty"`
	Amount  string `json:"amount"`
}

type PostTransactionRequest struct {
	CreatedBy string           `json:"createdBy"`
	Memo      string           `json:"memo,omitempty"`
	Postings  []PostingRequest `json:"postings"`
}

func (r PostTransactionRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.CreatedBy) == "" {
		errs = append(errs, "createdBy is required")
	} else if _, err := ParseAccount(r.CreatedBy); err != nil {
		errs = append(errs, err.Error())
	}

	if len(r.Postings) == 0 {
		errs = append(errs, "at least one posting is required")
	}
	for i, p := range r.Postings {
		if _, err := ParseAccount(p.Account); err != nil {
			errs = append(errs, fmt.Sprintf("postings[%d]: %v", i, err))
		}
		if _, err := ParseToken(p.Token); err != nil {
			errs = append(errs, fmt.Sprintf("postings[%d]: %v", i, err))
		}
		if _, err := ParseAmount(p.Amount); err != nil {
			errs = append(errs, fmt.Sprintf("postings[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Transaction converts a validated request into a proposed transfer.
func (r PostTransactionRequest) Transaction() (domain.Transaction, error) {
	createdBy, err := ParseAccount(r.CreatedBy)
	if err != nil {
		return domain.Transaction{}, err
	}

	postings := make([]domain.Posting, 0, len(r.Postings))
	for _, p := range r.Postings {
		account, err := ParseAccount(p.Account)
		if err != nil {
			return domain.Transaction{}, err
		}
		token, err := ParseToken(p.Token)
		if err != nil {
			return domain.Transaction{}, err
		}
		amount, err := ParseAmount(p.Amount)
		if err != nil {
			return domain.Transaction{}, err
		}
		postings = append(postings, domain.NewPosting(account, token, amount))
	}

	return domain.NewTransfer(createdBy, strings.TrimSpace(r.Memo), postings...), nil
}

type PostingResponse struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

type TransactionResponse struct {
	Time           uint64            `json:"time"`
	Status         string            `json:"status"`
	Kind           string            `json:"kind"`
	CreatedBy      string            `json:"createdBy"`
	CreatedAccount string            `json:"createdAccount,omitempty"`
	Memo           string            `json:"memo,omitempty"`
	Postings       []PostingResponse `json:"postings"`
}

func NewTransactionResponse(txn domain.Transaction) TransactionResponse {
	response := TransactionResponse{
		Time:      txn.Status.Time,
		Status:    string(txn.Status.State),
		Kind:      string(txn.Kind),
		CreatedBy: txn.CreatedBy.String(),
		Memo:      txn.Memo,
		Postings:  make([]PostingResponse, 0, len(txn.Postings)),
	}
	if txn.CreatedAccount != nil {
		response.CreatedAccount = txn.CreatedAccount.String()
	}
	for _, p := range txn.Postings {
		response.Postings = append(response.Postings, PostingResponse{
			Account: p.Account.String(),
			Token:   string(p.Amount.Token),
			Amount:  strconv.FormatInt(p.Amount.Quantity, 10),
		})
	}
	return response
}

type BalanceResponse struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}
