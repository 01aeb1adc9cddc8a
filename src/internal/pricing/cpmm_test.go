package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
)

func TestGetShares_ZeroBetIsNoOp(t *testing.T) {
	pools := []Pool{
		NewPool(100, 100, 0.5),
		NewPool(1, 5000, 0.2),
		NewPool(750, 3, 0.9),
	}

	for _, pool := range pools {
		for _, outcome := range []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo} {
			shares, err := GetShares(pool, 0, outcome)
			if err != nil {
				t.Fatalf("unexpected error for pool %+v: %v", pool, err)
			}
			if shares != 0 {
				t.Fatalf("expected 0 shares for pool %+v, got %v", pool, shares)
			}
		}
	}
}

func TestGetShares_BalancedPool(t *testing.T) {
	pool := NewPool(100, 100, 0.5)

	yes, err := GetShares(pool, 10, domain.OutcomeYes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 110 - 10000.0/110
	if math.Abs(yes-want) > 1e-9 {
		t.Fatalf("expected %v YES shares, got %v", want, yes)
	}

	no, err := GetShares(pool, 10, domain.OutcomeNo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(no-yes) > 1e-9 {
		t.Fatalf("expected symmetric pool to price both sides equally, got yes=%v no=%v", yes, no)
	}
}

func TestGetShares_PreservesInvariant(t *testing.T) {
	pool := NewPool(100, 100, 0.5)

	shares, err := GetShares(pool, 10, domain.OutcomeYes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, _ := pool.Invariant()
	after, err := pool.ApplyBet(10, domain.OutcomeYes, shares).Invariant()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(after-before)/before > 1e-6 {
		t.Fatalf("k drifted from %v to %v", before, after)
	}
}

func TestGetShares_WeightedPoolsPreserveInvariant(t *testing.T) {
	cases := []struct {
		pool    Pool
		amount  int64
		outcome domain.Outcome
	}{
		{NewPool(100, 300, 0.25), 40, domain.OutcomeYes},
		{NewPool(100, 300, 0.25), 40, domain.OutcomeNo},
		{NewPool(5000, 20, 0.8), 1, domain.OutcomeYes},
		{NewPool(5000, 20, 0.8), 999, domain.OutcomeNo},
		{NewPool(1000, 1000, 0.5), 500, domain.OutcomeYes},
	}

	for _, tc := range cases {
		if _, err := QuoteBet(tc.pool, tc.amount, tc.outcome, DefaultTolerance); err != nil {
			t.Fatalf("pool %+v bet %d %s: %v", tc.pool, tc.amount, tc.outcome, err)
		}
	}
}

func TestGetShares_StrictlyIncreasingInBet(t *testing.T) {
	pool := NewPool(200, 120, 0.4)

	for _, outcome := range []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo} {
		prev := -1.0
		for amount := int64(0); amount <= 2000; amount += 7 {
			shares, err := GetShares(pool, amount, outcome)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if shares <= prev {
				t.Fatalf("%s shares not increasing at bet %d: %v <= %v", outcome, amount, shares, prev)
			}
			prev = shares
		}
	}
}

func TestGetShares_DoesNotMutatePool(t *testing.T) {
	pool := NewPool(100, 100, 0.5)
	snapshot := pool

	if _, err := GetShares(pool, 25, domain.OutcomeNo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != snapshot {
		t.Fatalf("pool changed from %+v to %+v", snapshot, pool)
	}
}

func TestGetShares_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		pool    Pool
		amount  int64
		outcome domain.Outcome
	}{
		{"p zero", NewPool(100, 100, 0), 10, domain.OutcomeYes},
		{"p one", NewPool(100, 100, 1), 10, domain.OutcomeYes},
		{"p negative", NewPool(100, 100, -0.2), 10, domain.OutcomeNo},
		{"p nan", NewPool(100, 100, math.NaN()), 10, domain.OutcomeNo},
		{"negative bet", NewPool(100, 100, 0.5), -1, domain.OutcomeYes},
		{"zero yes reserve", NewPool(0, 100, 0.5), 10, domain.OutcomeYes},
		{"negative no reserve", NewPool(100, -3, 0.5), 10, domain.OutcomeNo},
		{"zero reserve zero bet", NewPool(0, 0, 0.5), 0, domain.OutcomeNo},
		{"unknown outcome", NewPool(100, 100, 0.5), 10, domain.Outcome("MAYBE")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GetShares(tc.pool, tc.amount, tc.outcome)
			if !errors.Is(err, domain.ErrInvalidPricingInput) {
				t.Fatalf("expected ErrInvalidPricingInput, got %v", err)
			}
		})
	}
}

func TestVerifyInvariant_DetectsDrift(t *testing.T) {
	before := NewPool(100, 100, 0.5)
	after := Pool{Yes: 90, No: 110, P: 0.5}

	if err := VerifyInvariant(before, after, DefaultTolerance); !errors.Is(err, domain.ErrInvariantDrift) {
		t.Fatalf("expected ErrInvariantDrift, got %v", err)
	}
}

func TestVerifyInvariant_RejectsDrainedPool(t *testing.T) {
	before := NewPool(100, 100, 0.5)
	after := Pool{Yes: 0, No: 110, P: 0.5}

	if err := VerifyInvariant(before, after, DefaultTolerance); !errors.Is(err, domain.ErrInvariantDrift) {
		t.Fatalf("expected ErrInvariantDrift, got %v", err)
	}
}

func TestQuoteBet_ReportsPostTradePool(t *testing.T) {
	pool := NewPool(100, 100, 0.5)

	quote, err := QuoteBet(pool, 10, domain.OutcomeNo, DefaultTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.After.Yes != 110 {
		t.Fatalf("expected YES reserve 110, got %v", quote.After.Yes)
	}
	if math.Abs(quote.After.No-(110-quote.Shares)) > 1e-9 {
		t.Fatalf("expected NO reserve %v, got %v", 110-quote.Shares, quote.After.No)
	}
	if math.Abs(quote.KAfter-quote.KBefore) > 1e-6*quote.KBefore {
		t.Fatalf("k drifted from %v to %v", quote.KBefore, quote.KAfter)
	}
}

func TestPoolProbability(t *testing.T) {
	prob, err := NewPool(100, 100, 0.5).Probability()
	if err != nil || math.Abs(prob-0.5) > 1e-12 {
		t.Fatalf("expected 0.5, got %v (%v)", prob, err)
	}

	before, _ := NewPool(100, 100, 0.5).Probability()
	quote, err := QuoteBet(NewPool(100, 100, 0.5), 10, domain.OutcomeYes, DefaultTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := quote.After.Probability()
	if after <= before {
		t.Fatalf("expected YES bet to raise probability, got %v -> %v", before, after)
	}

	if _, err := NewPool(0, 100, 0.5).Probability(); !errors.Is(err, domain.ErrInvalidPricingInput) {
		t.Fatalf("expected ErrInvalidPricingInput, got %v", err)
	}
}
