package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the side of a two-outcome market a bet is placed on.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Market is a CPMM market. Stakes are held by the market's contract account
// in the ledger; the pool reserves only drive pricing.
type Market struct {
	ID        string
	Question  string
	Account   Account
	Creator   Account
	PoolYes   float64
	PoolNo    float64
	P         float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position is the number of outcome shares an account holds in a market.
type Position struct {
	MarketID string
	Account  Account
	Yes      decimal.Decimal
	No       decimal.Decimal
}

// Trade is the pool and position change produced by a single bet.
type Trade struct {
	MarketID  string
	Bettor    Account
	Outcome   Outcome
	Amount    int64
	Shares    decimal.Decimal
	PoolYes   float64
	PoolNo    float64
	LedgerTxn uint64
}
