// Package pricing quotes bets against a weighted two-outcome constant-product
// pool. Every function here is pure; callers own the pool state and apply
// trades themselves.
package pricing

import (
	"fmt"
	"math"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
)

// DefaultTolerance bounds the relative drift allowed in k across a trade.
const DefaultTolerance = 1e-6

// Pool holds the reserves of both outcomes and the weight p of the YES side.
type Pool struct {
	Yes float64
	No  float64
	P   float64
}

func NewPool(yes, no int64, p float64) Pool {
	return Pool{Yes: float64(yes), No: float64(no), P: p}
}

func (pool Pool) Validate() error {
	if math.IsNaN(pool.P) || pool.P <= 0 || pool.P >= 1 {
		return fmt.Errorf("%w: p must be in (0,1), got %v", domain.ErrInvalidPricingInput, pool.P)
	}
	if !positiveFinite(pool.Yes) || !positiveFinite(pool.No) {
		return fmt.Errorf("%w: reserves must be positive, got yes=%v no=%v", domain.ErrInvalidPricingInput, pool.Yes, pool.No)
	}
	return nil
}

// Invariant returns k = yes^p * no^(1-p).
func (pool Pool) Invariant() (float64, error) {
	if err := pool.Validate(); err != nil {
		return 0, err
	}
	return invariant(pool), nil
}

// Probability is the implied probability of YES: p*no / (p*no + (1-p)*yes).
func (pool Pool) Probability() (float64, error) {
	if err := pool.Validate(); err != nil {
		return 0, err
	}
	return pool.P * pool.No / (pool.P*pool.No + (1-pool.P)*pool.Yes), nil
}

// ApplyBet returns the reserves after a bet of amount bought shares of
// outcome. The stake is added to both sides and the shares leave the side
// that was bought.
func (pool Pool) ApplyBet(amount int64, outcome domain.Outcome, shares float64) Pool {
	b := float64(amount)
	next := Pool{Yes: pool.Yes + b, No: pool.No + b, P: pool.P}
	if outcome == domain.OutcomeYes {
		next.Yes -= shares
	} else {
		next.No -= shares
	}
	return next
}

// GetShares returns how many shares of outcome a bet of amount buys while
// keeping k constant.
func GetShares(pool Pool, amount int64, outcome domain.Outcome) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: bet amount must not be negative, got %d", domain.ErrInvalidPricingInput, amount)
	}
	if !outcome.Valid() {
		return 0, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidPricingInput, outcome)
	}
	if err := pool.Validate(); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}

	b := float64(amount)
	y, n, p := pool.Yes, pool.No, pool.P
	k := invariant(pool)

	var shares float64
	if outcome == domain.OutcomeYes {
		shares = y + b - math.Pow(k*math.Pow(b+n, p-1), 1/p)
	} else {
		shares = n + b - math.Pow(k*math.Pow(b+y, -p), 1/(1-p))
	}

	if math.IsNaN(shares) || math.IsInf(shares, 0) {
		return 0, fmt.Errorf("%w: pool yes=%v no=%v p=%v cannot price a bet of %d", domain.ErrInvalidPricingInput, y, n, p, amount)
	}
	return shares, nil
}

// VerifyInvariant reports ErrInvariantDrift when k after a trade differs from
// k before it by more than tolerance, relative to k before.
func VerifyInvariant(before, after Pool, tolerance float64) error {
	kBefore, err := before.Invariant()
	if err != nil {
		return err
	}
	kAfter, err := after.Invariant()
	if err != nil {
		return fmt.Errorf("%w: post-trade pool is invalid: %v", domain.ErrInvariantDrift, err)
	}
	if drift := math.Abs(kAfter-kBefore) / kBefore; drift > tolerance {
		return fmt.Errorf("%w: k moved from %v to %v (relative %v > %v)", domain.ErrInvariantDrift, kBefore, kAfter, drift, tolerance)
	}
	return nil
}

type Quote struct {
	Shares  float64
	Before  Pool
	After   Pool
	KBefore float64
	KAfter  float64
}

// QuoteBet prices a bet, derives the post-trade pool and checks that k held.
func QuoteBet(pool Pool, amount int64, outcome domain.Outcome, tolerance float64) (Quote, error) {
	shares, err := GetShares(pool, amount, outcome)
	if err != nil {
		return Quote{}, err
	}

	after := pool.ApplyBet(amount, outcome, shares)
	if err := VerifyInvariant(pool, after, tolerance); err != nil {
		return Quote{}, err
	}

	return Quote{
		Shares:  shares,
		Before:  pool,
		After:   after,
		KBefore: invariant(pool),
		KAfter:  invariant(after),
	}, nil
}

func invariant(pool Pool) float64 {
	return math.Pow(pool.Yes, pool.P) * math.Pow(pool.No, 1-pool.P)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
