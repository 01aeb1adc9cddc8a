package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func ParseOutcome(raw string) (domain.Outcome, error) {
	outcome := domain.Outcome(strings.ToUpper(strings.TrimSpace(raw)))
	if !outcome.Valid() {
		return "", fmt.Errorf("direction must be YES or NO, got %q", raw)
	}
	return outcome, nil
}

type CreateMarketRequest struct {
	Creator  string `json:"creator"`
	Question string `json:"question"`
	PoolYes  string `json:"poolYes"`
	PoolNo   string `json:"poolNo"`
	P        string `json:"p"`
}

func (r CreateMarketRequest) Validate() error {
	var errs []string

	if _, err := ParseAccount(r.Creator); err != nil {
		errs = append(errs, "creator: "+err.Error())
	}
	if strings.TrimSpace(r.Question) == "" {
		errs = append(errs, "question is required")
	}
	for _, reserve := range []struct{ name, raw string }{{"poolYes", r.PoolYes}, {"poolNo", r.PoolNo}} {
		amount, err := ParseAmount(reserve.raw)
		if err != nil {
			errs = append(errs, reserve.name+": "+err.Error())
		} else if amount <= 0 {
			errs = append(errs, reserve.name+" must be greater than zero")
		}
	}
	if p, err := decimal.NewFromString(strings.TrimSpace(r.P)); err != nil {
		errs = append(errs, "p must be numeric")
	} else if p.LessThanOrEqual(decimal.Zero) || p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "p must be strictly between 0 and 1")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type MarketResponse struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Account     string `json:"account"`
	Creator     string `json:"creator"`
	PoolYes     string `json:"poolYes"`
	PoolNo      string `json:"poolNo"`
	P           string `json:"p"`
	Probability string `json:"probability"`
}

type QuoteRequest struct {
	MarketID  string `json:"marketId"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

func (r QuoteRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.MarketID) == "" {
		errs = append(errs, "marketId is required")
	}
	if amount, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	} else if amount < 0 {
		errs = append(errs, "amount cannot be negative")
	}
	if _, err := ParseOutcome(r.Direction); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type QuoteResponse struct {
	MarketID         string `json:"marketId"`
	Direction        string `json:"direction"`
	Amount           string `json:"amount"`
	Shares           string `json:"shares"`
	PoolYesAfter     string `json:"poolYesAfter"`
	PoolNoAfter      string `json:"poolNoAfter"`
	ProbabilityAfter string `json:"probabilityAfter"`
}

type PlaceBetRequest struct {
	MarketID  string `json:"marketId"`
	Bettor    string `json:"bettor"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

func (r PlaceBetRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.MarketID) == "" {
		errs = append(errs, "marketId is required")
	}
	if _, err := ParseAccount(r.Bettor); err != nil {
		errs = append(errs, "bettor: "+err.Error())
	}
	if amount, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	} else if amount <= 0 {
		errs = append(errs, "amount must be greater than zero")
	}
	if _, err := ParseOutcome(r.Direction); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type BetResponse struct {
	QuoteResponse
	Bettor      string `json:"bettor"`
	LedgerTime  uint64 `json:"ledgerTime"`
	PositionYes string `json:"positionYes"`
	PositionNo  string `json:"positionNo"`
}
