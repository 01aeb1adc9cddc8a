package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
	"github.com/api-sage/yosoku-ledger/src/internal/pricing"
	"github.com/shopspring/decimal"
)

// MarketService prices and settles bets against CPMM markets. Stakes move
// through the ledger; pool reserves and share positions live in the market
// repository.
type MarketService struct {
	ledger    domain.LedgerRepository
	markets   domain.MarketRepository
	tolerance float64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMarketService(ledger domain.LedgerRepository, markets domain.MarketRepository, tolerance float64) *MarketService {
	if tolerance <= 0 {
		tolerance = pricing.DefaultTolerance
	}
	return &MarketService{
		ledger:    ledger,
		markets:   markets,
		tolerance: tolerance,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *MarketService) CreateMarket(ctx context.Context, req models.CreateMarketRequest) (commons.Response[models.MarketResponse], error) {
	logger.Info("market service create market request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("market service create market validation failed", err, nil)
		return validationResponse[models.MarketResponse](err), err
	}

	creator, _ := models.ParseAccount(req.Creator)
	poolYes, _ := models.ParseAmount(req.PoolYes)
	poolNo, _ := models.ParseAmount(req.PoolNo)
	p, _ := decimal.NewFromString(strings.TrimSpace(req.P))
	weight, _ := p.Float64()

	pool := pricing.NewPool(poolYes, poolNo, weight)
	if err := pool.Validate(); err != nil {
		return failureResponse[models.MarketResponse](err, "failed to create market", ""), err
	}

	account, err := s.ledger.CreateAccount(ctx, domain.AccountTypeContract, creator)
	if err != nil {
		logger.Error("market service create market account failed", err, logger.Fields{
			"creator": creator,
		})
		return failureResponse[models.MarketResponse](err, "failed to create market", "Unable to create market right now"), err
	}

	market, err := s.markets.Create(ctx, domain.Market{
		Question: strings.TrimSpace(req.Question),
		Account:  account,
		Creator:  creator,
		PoolYes:  pool.Yes,
		PoolNo:   pool.No,
		P:        pool.P,
	})
	if err != nil {
		logger.Error("market service create market repository failed", err, logger.Fields{
			"account": account,
		})
		return failureResponse[models.MarketResponse](err, "failed to create market", "Unable to create market right now"), err
	}

	logger.Info("market service create market success", logger.Fields{
		"marketId": market.ID,
		"account":  market.Account,
	})

	return commons.SuccessResponse("market created successfully", mapMarketToResponse(market)), nil
}

func (s *MarketService) GetMarket(ctx context.Context, id string) (commons.Response[models.MarketResponse], error) {
	logger.Info("market service get market request", logger.Fields{
		"marketId": id,
	})

	id = strings.TrimSpace(id)
	if id == "" {
		err := fmt.Errorf("marketId is required")
		return validationResponse[models.MarketResponse](err), err
	}

	market, err := s.markets.Get(ctx, id)
	if err != nil {
		logger.Error("market service get market failed", err, logger.Fields{
			"marketId": id,
		})
		return failureResponse[models.MarketResponse](err, "failed to get market", "Unable to fetch market right now"), err
	}

	return commons.SuccessResponse("market fetched successfully", mapMarketToResponse(market)), nil
}

func (s *MarketService) Quote(ctx context.Context, req models.QuoteRequest) (commons.Response[models.QuoteResponse], error) {
	logger.Info("market service quote request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("market service quote validation failed", err, nil)
		return validationResponse[models.QuoteResponse](err), err
	}

	amount, _ := models.ParseAmount(req.Amount)
	outcome, _ := models.ParseOutcome(req.Direction)

	market, err := s.markets.Get(ctx, strings.TrimSpace(req.MarketID))
	if err != nil {
		logger.Error("market service quote market lookup failed", err, logger.Fields{
			"marketId": req.MarketID,
		})
		return failureResponse[models.QuoteResponse](err, "failed to quote bet", "Unable to quote bet right now"), err
	}

	quote, err := pricing.QuoteBet(poolOf(market), amount, outcome, s.tolerance)
	if err != nil {
		logger.Error("market service quote pricing failed", err, logger.Fields{
			"marketId": market.ID,
		})
		return failureResponse[models.QuoteResponse](err, "failed to quote bet", "Unable to quote bet right now"), err
	}

	return commons.SuccessResponse("bet quoted successfully", mapQuoteToResponse(market.ID, amount, outcome, quote)), nil
}

// PlaceBet quotes and settles a bet as one unit: the market stays locked from
// reading the pool until the new reserves are stored, so no other bet can
// price against a stale k.
func (s *MarketService) PlaceBet(ctx context.Context, req models.PlaceBetRequest) (commons.Response[models.BetResponse], error) {
	logger.Info("market service place bet request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("market service place bet validation failed", err, nil)
		return validationResponse[models.BetResponse](err), err
	}

	marketID := strings.TrimSpace(req.MarketID)
	bettor, _ := models.ParseAccount(req.Bettor)
	amount, _ := models.ParseAmount(req.Amount)
	outcome, _ := models.ParseOutcome(req.Direction)

	lock, err := s.marketLock(ctx, marketID)
	if err != nil {
		logger.Error("market service place bet market lookup failed", err, logger.Fields{
			"marketId": marketID,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}
	lock.Lock()
	defer lock.Unlock()

	market, err := s.markets.Get(ctx, marketID)
	if err != nil {
		logger.Error("market service place bet market lookup failed", err, logger.Fields{
			"marketId": marketID,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}

	quote, err := pricing.QuoteBet(poolOf(market), amount, outcome, s.tolerance)
	if err != nil {
		logger.Error("market service place bet pricing failed", err, logger.Fields{
			"marketId": marketID,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}

	memo := fmt.Sprintf("bet %d on %s in market %s", amount, outcome, market.ID)
	txn, err := s.ledger.Transact(ctx, domain.NewTransfer(bettor, memo,
		domain.NewPosting(bettor, domain.TokenSiteCurrency, -amount),
		domain.NewPosting(market.Account, domain.TokenSiteCurrency, amount),
	))
	if err != nil {
		logger.Error("market service place bet ledger transfer failed", err, logger.Fields{
			"marketId": marketID,
			"bettor":   bettor,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}

	shares := decimal.NewFromFloat(quote.Shares)
	if _, err := s.markets.ApplyTrade(ctx, domain.Trade{
		MarketID:  market.ID,
		Bettor:    bettor,
		Outcome:   outcome,
		Amount:    amount,
		Shares:    shares,
		PoolYes:   quote.After.Yes,
		PoolNo:    quote.After.No,
		LedgerTxn: txn.Status.Time,
	}); err != nil {
		// The stake is already in the ledger; surface loudly so it can be
		// reconciled against the logged transaction time.
		logger.Error("market service place bet apply trade failed after ledger transfer", err, logger.Fields{
			"marketId":   marketID,
			"bettor":     bettor,
			"ledgerTime": txn.Status.Time,
		})
		logger.Warn("market service bet needs reconciliation", logger.Fields{
			"marketId":      marketID,
			"bettor":        bettor,
			"amount":        amount,
			"marketAccount": market.Account,
			"ledgerTime":    txn.Status.Time,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}

	position, err := s.markets.GetPosition(ctx, market.ID, bettor)
	if err != nil {
		logger.Error("market service place bet position lookup failed", err, logger.Fields{
			"marketId": marketID,
			"bettor":   bettor,
		})
		return failureResponse[models.BetResponse](err, "failed to place bet", "Unable to place bet right now"), err
	}

	response := models.BetResponse{
		QuoteResponse: mapQuoteToResponse(market.ID, amount, outcome, quote),
		Bettor:        bettor.String(),
		LedgerTime:    txn.Status.Time,
		PositionYes:   position.Yes.String(),
		PositionNo:    position.No.String(),
	}

	logger.Info("market service place bet success", logger.Fields{
		"marketId":   market.ID,
		"bettor":     bettor,
		"shares":     response.Shares,
		"ledgerTime": txn.Status.Time,
	})

	return commons.SuccessResponse("bet placed successfully", response), nil
}

// marketLock returns the lock for an existing market. Ids that do not resolve
// to a market never get an entry.
func (s *MarketService) marketLock(ctx context.Context, id string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[id]; ok {
		return lock, nil
	}
	if _, err := s.markets.Get(ctx, id); err != nil {
		return nil, err
	}

	lock := &sync.Mutex{}
	s.locks[id] = lock
	return lock, nil
}

func poolOf(market domain.Market) pricing.Pool {
	return pricing.Pool{Yes: market.PoolYes, No: market.PoolNo, P: market.P}
}

func mapMarketToResponse(market domain.Market) models.MarketResponse {
	probability, _ := poolOf(market).Probability()
	return models.MarketResponse{
		ID:          market.ID,
		Question:    market.Question,
		Account:     market.Account.String(),
		Creator:     market.Creator.String(),
		PoolYes:     formatFloat(market.PoolYes),
		PoolNo:      formatFloat(market.PoolNo),
		P:           formatFloat(market.P),
		Probability: formatFloat(probability),
	}
}

func mapQuoteToResponse(marketID string, amount int64, outcome domain.Outcome, quote pricing.Quote) models.QuoteResponse {
	probability, _ := quote.After.Probability()
	return models.QuoteResponse{
		MarketID:         marketID,
		Direction:        string(outcome),
		Amount:           strconv.FormatInt(amount, 10),
		Shares:           formatFloat(quote.Shares),
		PoolYesAfter:     formatFloat(quote.After.Yes),
		PoolNoAfter:      formatFloat(quote.After.No),
		ProbabilityAfter: formatFloat(probability),
	}
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}
