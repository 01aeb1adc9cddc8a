package domain

import "context"

type MarketRepository interface {
	Create(ctx context.Context, market Market) (Market, error)
	Get(ctx context.Context, id string) (Market, error)
	// ApplyTrade sets the post-trade reserves and credits the bettor's
	// shares in one step.
	ApplyTrade(ctx context.Context, trade Trade) (Market, error)
	GetPosition(ctx context.Context, marketID string, account Account) (Position, error)
}
