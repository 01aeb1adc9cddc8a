package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/yosoku-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/yosoku-ledger/src/internal/config"
	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
	"github.com/api-sage/yosoku-ledger/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, markets, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("open stores: %v", err)
	}
	defer closeStores()

	channelKeyHash := []byte(cfg.ChannelKeyHash)
	if len(channelKeyHash) == 0 {
		channelKeyHash, err = middleware.HashChannelKey(cfg.ChannelKey)
		if err != nil {
			log.Fatalf("hash channel key: %v", err)
		}
	}

	mux := router.New(
		controller.NewLedgerController(services.NewLedgerService(ledger)),
		controller.NewMarketController(services.NewMarketService(ledger, markets, cfg.PricingTolerance)),
		middleware.BasicAuth(cfg.ChannelID, channelKeyHash),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":    cfg.HTTPAddr,
			"backend": cfg.Backend,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server stopped", err, nil)
		return
	}
	logger.Info("http server stopped", nil)
}

// openStores returns the ledger and market repositories for the configured
// backend. With postgres both live in the same database.
func openStores(ctx context.Context, cfg config.Config) (domain.LedgerRepository, domain.MarketRepository, func(), error) {
	if cfg.Backend == config.BackendMemory {
		if cfg.LedgerIndexed {
			return memory.NewIndexedLedgerRepository(), memory.NewMarketRepository(), func() {}, nil
		}
		return memory.NewLedgerRepository(), memory.NewMarketRepository(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.Open(connectCtx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := postgres.RunMigrations(connectCtx, db, cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	return postgres.NewLedgerRepository(db), postgres.NewMarketRepository(db), func() { _ = db.Close() }, nil
}
