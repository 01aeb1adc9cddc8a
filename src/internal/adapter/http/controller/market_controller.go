package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/yosoku-ledger/src/internal/commons"
)

type MarketService interface {
	CreateMarket(ctx context.Context, req models.CreateMarketRequest) (commons.Response[models.MarketResponse], error)
	GetMarket(ctx context.Context, id string) (commons.Response[models.MarketResponse], error)
	Quote(ctx context.Context, req models.QuoteRequest) (commons.Response[models.QuoteResponse], error)
	PlaceBet(ctx context.Context, req models.PlaceBetRequest) (commons.Response[models.BetResponse], error)
}

type MarketController struct {
	service MarketService
}

func NewMarketController(service MarketService) *MarketController {
	return &MarketController{service: service}
}

func (c *MarketController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/markets", withAuth(c.markets, authMiddleware))
	mux.Handle("/markets/quote", withAuth(c.quote, authMiddleware))
	mux.Handle("/markets/bets", withAuth(c.placeBet, authMiddleware))
}

func (c *MarketController) markets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	switch r.Method {
	case http.MethodPost:
		var req models.CreateMarketRequest
		if !decodeBody[models.MarketResponse](w, r, start, &req) {
			return
		}
		response, err := c.service.CreateMarket(r.Context(), req)
		writeResult(w, r, start, http.StatusCreated, response, err)
	case http.MethodGet:
		response, err := c.service.GetMarket(r.Context(), r.URL.Query().Get("id"))
		writeResult(w, r, start, http.StatusOK, response, err)
	default:
		methodNotAllowed[models.MarketResponse](w, r, start)
	}
}

func (c *MarketController) quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		methodNotAllowed[models.QuoteResponse](w, r, start)
		return
	}

	query := r.URL.Query()
	response, err := c.service.Quote(r.Context(), models.QuoteRequest{
		MarketID:  query.Get("marketId"),
		Amount:    query.Get("amount"),
		Direction: query.Get("direction"),
	})
	writeResult(w, r, start, http.StatusOK, response, err)
}

func (c *MarketController) placeBet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.BetResponse](w, r, start)
		return
	}

	var req models.PlaceBetRequest
	if !decodeBody[models.BetResponse](w, r, start, &req) {
		return
	}
	response, err := c.service.PlaceBet(r.Context(), req)
	writeResult(w, r, start, http.StatusCreated, response, err)
}
