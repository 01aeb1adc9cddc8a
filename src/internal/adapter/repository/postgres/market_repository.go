package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

var _ domain.MarketRepository = (*MarketRepository)(nil)

const marketColumns = `id, question, account_id, creator_id, pool_yes, pool_no, p, created_at, updated_at`

// MarketRepository keeps pools and share positions next to the ledger tables,
// so a restart sees the same reserves the recorded stakes were priced against.
type MarketRepository struct {
	db *sql.DB
}

func NewMarketRepository(db *sql.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

func (r *MarketRepository) Create(ctx context.Context, market domain.Market) (domain.Market, error) {
	logger.Info("market repository create", logger.Fields{
		"account": market.Account,
		"creator": market.Creator,
	})

	query := `
INSERT INTO markets (id, question, account_id, creator_id, pool_yes, pool_no, p)
VALUES ('MKT' || LPAD(nextval('markets_id_seq')::text, 8, '0'), $1, $2, $3, $4, $5, $6)
RETURNING ` + marketColumns

	created, err := scanMarket(r.db.QueryRowContext(ctx, query,
		market.Question,
		int64(market.Account),
		int64(market.Creator),
		market.PoolYes,
		market.PoolNo,
		market.P,
	))
	if err != nil {
		logger.Error("market repository create failed", err, nil)
		return domain.Market{}, fmt.Errorf("create market: %w", err)
	}

	return created, nil
}

func (r *MarketRepository) Get(ctx context.Context, id string) (domain.Market, error) {
	market, err := scanMarket(r.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Market{}, domain.ErrRecordNotFound
		}
		return domain.Market{}, fmt.Errorf("get market: %w", err)
	}
	return market, nil
}

// ApplyTrade stores the new reserves and adds the shares to the bettor's
// position in one database transaction.
func (r *MarketRepository) ApplyTrade(ctx context.Context, trade domain.Trade) (domain.Market, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Market{}, fmt.Errorf("begin trade tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	market, err := scanMarket(tx.QueryRowContext(ctx, `
UPDATE markets SET pool_yes = $2, pool_no = $3, updated_at = NOW()
WHERE id = $1
RETURNING `+marketColumns, trade.MarketID, trade.PoolYes, trade.PoolNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Market{}, domain.ErrRecordNotFound
		}
		return domain.Market{}, fmt.Errorf("update market pool: %w", err)
	}

	yes, no := decimal.Zero, decimal.Zero
	if trade.Outcome == domain.OutcomeYes {
		yes = trade.Shares
	} else {
		no = trade.Shares
	}

	const upsertPosition = `
INSERT INTO market_positions (market_id, account_id, yes_shares, no_shares, last_ledger_time)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (market_id, account_id) DO UPDATE SET
	yes_shares = market_positions.yes_shares + EXCLUDED.yes_shares,
	no_shares = market_positions.no_shares + EXCLUDED.no_shares,
	last_ledger_time = EXCLUDED.last_ledger_time`
	if _, err := tx.ExecContext(ctx, upsertPosition, trade.MarketID, int64(trade.Bettor), yes, no, int64(trade.LedgerTxn)); err != nil {
		return domain.Market{}, fmt.Errorf("update position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Market{}, fmt.Errorf("commit trade tx: %w", err)
	}

	return market, nil
}

func (r *MarketRepository) GetPosition(ctx context.Context, marketID string, account domain.Account) (domain.Position, error) {
	if _, err := r.Get(ctx, marketID); err != nil {
		return domain.Position{}, err
	}

	position := domain.Position{MarketID: marketID, Account: account, Yes: decimal.Zero, No: decimal.Zero}
	err := r.db.QueryRowContext(ctx, `
SELECT yes_shares, no_shares FROM market_positions
WHERE market_id = $1 AND account_id = $2`, marketID, int64(account)).Scan(&position.Yes, &position.No)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, fmt.Errorf("get position: %w", err)
	}

	return position, nil
}

func scanMarket(row *sql.Row) (domain.Market, error) {
	var (
		market    domain.Market
		accountID int64
		creatorID int64
	)
	if err := row.Scan(
		&market.ID,
		&market.Question,
		&accountID,
		&creatorID,
		&market.PoolYes,
		&market.PoolNo,
		&market.P,
		&market.CreatedAt,
		&market.UpdatedAt,
	); err != nil {
		return domain.Market{}, err
	}

	market.Account = domain.Account(accountID)
	market.Creator = domain.Account(creatorID)
	return market, nil
}
