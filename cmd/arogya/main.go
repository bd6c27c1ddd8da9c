package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arogya-his/arogya-his/internal/app"
	"github.com/arogya-his/arogya-his/internal/billing"
	"github.com/arogya-his/arogya-his/internal/ledger"
	"github.com/arogya-his/arogya-his/internal/platform/cache"
	"github.com/arogya-his/arogya-his/internal/platform/db"
	"github.com/arogya-his/arogya-his/internal/tariff"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tariffRepo := tariff.NewRepository(pool)
	resolver := tariff.NewResolver(tariffRepo, logger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, ledger.AccountConventions{
		Cash:        cfg.CashAccountID,
		Bank:        cfg.BankAccountID,
		Receivables: cfg.ReceivablesAccountID,
	}, logger)
	if err := ledgerService.ValidateConventions(ctx); err != nil {
		logger.Error("validate ledger account conventions", slog.Any("error", err))
		os.Exit(1)
	}
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	billCache := billing.NewCache(redisClient, cfg.BillCacheTTL)
	billingService := billing.NewService(
		billing.NewRepository(pool),
		resolver,
		ledgerService,
		billCache,
		billing.Config{NABHLocationID: cfg.NABHLocationID, AnesthesiaRate: cfg.AnesthesiaRate},
		logger,
	)
	billingHandler := billing.NewHandler(logger, billingService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BillingHandler: billingHandler,
		LedgerHandler:  ledgerHandler,
		Pool:           pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", slog.Any("error", err))
	}
}
