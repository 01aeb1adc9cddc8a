package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

var _ domain.MarketRepository = (*MarketRepository)(nil)

type positionKey struct {
	marketID string
	account  domain.Account
}

type MarketRepository struct {
	mu        sync.RWMutex
	markets   map[string]domain.Market
	positions map[positionKey]domain.Position
	seq       uint64
}

func NewMarketRepository() *MarketRepository {
	return &MarketRepository{
		markets:   make(map[string]domain.Market),
		positions: make(map[positionKey]domain.Position),
	}
}

func (r *MarketRepository) Create(_ context.Context, market domain.Market) (domain.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	now := time.Now().UTC()
	market.ID = fmt.Sprintf("MKT%08d", r.seq)
	market.CreatedAt = now
	market.UpdatedAt = now
	r.markets[market.ID] = market

	return market, nil
}

func (r *MarketRepository) Get(_ context.Context, id string) (domain.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	market, ok := r.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrRecordNotFound
	}
	return market, nil
}

func (r *MarketRepository) ApplyTrade(_ context.Context, trade domain.Trade) (domain.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	market, ok := r.markets[trade.MarketID]
	if !ok {
		return domain.Market{}, domain.ErrRecordNotFound
	}

	market.PoolYes = trade.PoolYes
	market.PoolNo = trade.PoolNo
	market.UpdatedAt = time.Now().UTC()
	r.markets[market.ID] = market

	key := positionKey{marketID: trade.MarketID, account: trade.Bettor}
	position := r.positionLocked(key)
	if trade.Outcome == domain.OutcomeYes {
		position.Yes = position.Yes.Add(trade.Shares)
	} else {
		position.No = position.No.Add(trade.Shares)
	}
	r.positions[key] = position

	return market, nil
}

func (r *MarketRepository) GetPosition(_ context.Context, marketID string, account domain.Account) (domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.markets[marketID]; !ok {
		return domain.Position{}, domain.ErrRecordNotFound
	}
	return r.positionLocked(positionKey{marketID: marketID, account: account}), nil
}

func (r *MarketRepository) positionLocked(key positionKey) domain.Position {
	position, ok := r.positions[key]
	if !ok {
		return domain.Position{
			MarketID: key.marketID,
			Account:  key.account,
			Yes:      decimal.Zero,
			No:       decimal.Zero,
		}
	}
	return position
}
