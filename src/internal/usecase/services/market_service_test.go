package services_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/pricing"
	"github.com/api-sage/yosoku-ledger/src/internal/usecase/services"
)

type marketFixture struct {
	ledger  *memory.LedgerRepository
	markets *memory.MarketRepository
	svc     *services.MarketService
	bettor  domain.Account
	market  models.MarketResponse
}

func newMarketFixture(t *testing.T) marketFixture {
	t.Helper()
	ctx := context.Background()

	ledger := memory.NewIndexedLedgerRepository()
	markets := memory.NewMarketRepository()
	svc := services.NewMarketService(ledger, markets, pricing.DefaultTolerance)

	bettor, err := ledger.CreateAccount(ctx, domain.AccountTypeUser, domain.SystemAccount)
	if err != nil {
		t.Fatalf("create bettor: %v", err)
	}

	resp, err := svc.CreateMarket(ctx, models.CreateMarketRequest{
		Creator:  "0",
		Question: "Will it rain tomorrow?",
		PoolYes:  "100",
		PoolNo:   "100",
		P:        "0.5",
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}

	return marketFixture{ledger: ledger, markets: markets, svc: svc, bettor: bettor, market: *resp.Data}
}

func TestMarketServiceCreateMarketValidationError(t *testing.T) {
	svc := services.NewMarketService(nil, nil, 0)

	resp, err := svc.CreateMarket(context.Background(), models.CreateMarketRequest{P: "1.2"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if resp.Code != commons.CodeValidationFailed {
		t.Fatalf("expected %s, got %s", commons.CodeValidationFailed, resp.Code)
	}
}

func TestMarketServiceCreateMarketOpensContractAccount(t *testing.T) {
	f := newMarketFixture(t)

	account, err := models.ParseAccount(f.market.Account)
	if err != nil {
		t.Fatalf("parse account: %v", err)
	}
	typ, err := f.ledger.AccountType(context.Background(), account)
	if err != nil || typ != domain.AccountTypeContract {
		t.Fatalf("expected CONTRACT account, got %q (%v)", typ, err)
	}
	if f.market.Probability != "0.5" {
		t.Fatalf("expected probability 0.5, got %s", f.market.Probability)
	}
}

func TestMarketServiceQuoteZeroBet(t *testing.T) {
	f := newMarketFixture(t)

	resp, err := f.svc.Quote(context.Background(), models.QuoteRequest{MarketID: f.market.ID, Amount: "0", Direction: "yes"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if resp.Data.Shares != "0" {
		t.Fatalf("expected 0 shares, got %s", resp.Data.Shares)
	}
}

func TestMarketServicePlaceBet(t *testing.T) {
	ctx := context.Background()
	f := newMarketFixture(t)

	quote, err := f.svc.Quote(ctx, models.QuoteRequest{MarketID: f.market.ID, Amount: "10", Direction: "YES"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	resp, err := f.svc.PlaceBet(ctx, models.PlaceBetRequest{
		MarketID:  f.market.ID,
		Bettor:    f.bettor.String(),
		Amount:    "10",
		Direction: "YES",
	})
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if resp.Data.Shares != quote.Data.Shares {
		t.Fatalf("expected bet to match quote %s, got %s", quote.Data.Shares, resp.Data.Shares)
	}
	if resp.Data.PositionYes != resp.Data.Shares || resp.Data.PositionNo != "0" {
		t.Fatalf("unexpected position yes=%s no=%s", resp.Data.PositionYes, resp.Data.PositionNo)
	}

	balance, _ := f.ledger.AccountBalance(ctx, f.bettor, domain.TokenSiteCurrency)
	if balance.Quantity != -10 {
		t.Fatalf("expected bettor balance -10, got %d", balance.Quantity)
	}
	marketAccount, _ := models.ParseAccount(f.market.Account)
	balance, _ = f.ledger.AccountBalance(ctx, marketAccount, domain.TokenSiteCurrency)
	if balance.Quantity != 10 {
		t.Fatalf("expected market balance 10, got %d", balance.Quantity)
	}

	market, err := f.markets.Get(ctx, f.market.ID)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if market.PoolNo != 110 {
		t.Fatalf("expected NO reserve 110, got %v", market.PoolNo)
	}
	if err := pricing.VerifyInvariant(pricing.NewPool(100, 100, 0.5), pricing.Pool{Yes: market.PoolYes, No: market.PoolNo, P: market.P}, 1e-6); err != nil {
		t.Fatalf("stored pool broke invariant: %v", err)
	}
}

func TestMarketServicePlaceBetUnknownBettorLeavesPoolUntouched(t *testing.T) {
	ctx := context.Background()
	f := newMarketFixture(t)

	resp, err := f.svc.PlaceBet(ctx, models.PlaceBetRequest{
		MarketID:  f.market.ID,
		Bettor:    "4040",
		Amount:    "10",
		Direction: "NO",
	})
	if !errors.Is(err, domain.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if resp.Code != commons.CodeUnknownAccount {
		t.Fatalf("expected %s, got %s", commons.CodeUnknownAccount, resp.Code)
	}

	market, _ := f.markets.Get(ctx, f.market.ID)
	if market.PoolYes != 100 || market.PoolNo != 100 {
		t.Fatalf("expected untouched pool, got yes=%v no=%v", market.PoolYes, market.PoolNo)
	}
}

func TestMarketServicePlaceBetUnknownMarket(t *testing.T) {
	f := newMarketFixture(t)

	resp, err := f.svc.PlaceBet(context.Background(), models.PlaceBetRequest{
		MarketID:  "MKT-missing",
		Bettor:    f.bettor.String(),
		Amount:    "10",
		Direction: "NO",
	})
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if resp.Code != commons.CodeNotFound {
		t.Fatalf("expected %s, got %s", commons.CodeNotFound, resp.Code)
	}
}

func TestMarketServicePlaceBetUnknownMarketsAreNotTracked(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := f.svc.PlaceBet(ctx, models.PlaceBetRequest{
			MarketID:  "MKT-missing-" + strconv.Itoa(i),
			Bettor:    f.bettor.String(),
			Amount:    "1",
			Direction: "YES",
		})
		if !errors.Is(err, domain.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	}
	if got := services.TrackedMarketLocks(f.svc); got != 0 {
		t.Fatalf("expected no locks for unknown markets, got %d", got)
	}

	if _, err := f.svc.PlaceBet(ctx, models.PlaceBetRequest{
		MarketID:  f.market.ID,
		Bettor:    f.bettor.String(),
		Amount:    "1",
		Direction: "YES",
	}); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if got := services.TrackedMarketLocks(f.svc); got != 1 {
		t.Fatalf("expected one lock, got %d", got)
	}
}

var errTradeStoreDown = errors.New("trade store unavailable")

type failingTradeRepository struct {
	*memory.MarketRepository
}

func (r failingTradeRepository) ApplyTrade(context.Context, domain.Trade) (domain.Market, error) {
	return domain.Market{}, errTradeStoreDown
}

func TestMarketServicePlaceBetLogsReconciliationWhenTradeFails(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewIndexedLedgerRepository()
	markets := failingTradeRepository{MarketRepository: memory.NewMarketRepository()}
	svc := services.NewMarketService(ledger, markets, pricing.DefaultTolerance)

	bettor, err := ledger.CreateAccount(ctx, domain.AccountTypeUser, domain.SystemAccount)
	if err != nil {
		t.Fatalf("create bettor: %v", err)
	}
	created, err := svc.CreateMarket(ctx, models.CreateMarketRequest{
		Creator:  "0",
		Question: "Will it snow?",
		PoolYes:  "100",
		PoolNo:   "100",
		P:        "0.5",
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}

	var buf bytes.Buffer
	out := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(out) })

	_, err = svc.PlaceBet(ctx, models.PlaceBetRequest{
		MarketID:  created.Data.ID,
		Bettor:    bettor.String(),
		Amount:    "10",
		Direction: "YES",
	})
	if !errors.Is(err, errTradeStoreDown) {
		t.Fatalf("expected trade store error, got %v", err)
	}

	if !strings.Contains(buf.String(), "WARN market service bet needs reconciliation") {
		t.Fatalf("expected reconciliation warning, got %q", buf.String())
	}

	balance, err := ledger.AccountBalance(ctx, bettor, domain.TokenSiteCurrency)
	if err != nil || balance.Quantity != -10 {
		t.Fatalf("expected stake to stay in the ledger, got %+v (%v)", balance, err)
	}
}

func TestMarketServiceConcurrentBetsKeepInvariant(t *testing.T) {
	ctx := context.Background()
	f := newMarketFixture(t)

	const bets = 40
	var wg sync.WaitGroup
	errs := make(chan error, bets)
	for i := 0; i < bets; i++ {
		direction := "YES"
		if i%2 == 1 {
			direction = "NO"
		}
		wg.Add(1)
		go func(amount int, direction string) {
			defer wg.Done()
			_, err := f.svc.PlaceBet(ctx, models.PlaceBetRequest{
				MarketID:  f.market.ID,
				Bettor:    f.bettor.String(),
				Amount:    strconv.Itoa(amount),
				Direction: direction,
			})
			if err != nil {
				errs <- err
			}
		}(i+1, direction)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	market, _ := f.markets.Get(ctx, f.market.ID)
	if err := pricing.VerifyInvariant(pricing.NewPool(100, 100, 0.5), pricing.Pool{Yes: market.PoolYes, No: market.PoolNo, P: market.P}, 1e-6); err != nil {
		t.Fatalf("pool drifted after concurrent bets: %v", err)
	}

	balance, _ := f.ledger.AccountBalance(ctx, f.bettor, domain.TokenSiteCurrency)
	if balance.Quantity != -bets*(bets+1)/2 {
		t.Fatalf("expected bettor balance %d, got %d", -bets*(bets+1)/2, balance.Quantity)
	}
}
