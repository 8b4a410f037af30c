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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/financed-sales/internal/app"
	"github.com/odyssey-erp/financed-sales/internal/applications"
	"github.com/odyssey-erp/financed-sales/internal/observability"
	"github.com/odyssey-erp/financed-sales/internal/payments"
	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/platform/cache"
	"github.com/odyssey-erp/financed-sales/internal/platform/db"
	"github.com/odyssey-erp/financed-sales/internal/schedule"
	"github.com/odyssey-erp/financed-sales/internal/shared"
	"github.com/odyssey-erp/financed-sales/jobs"
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

	idempotencyStore := shared.NewIdempotencyStore(pool)

	plansRepo := plans.NewRepository(pool)
	plansService := plans.NewService(plansRepo, logger)
	plansHandler := plans.NewHandler(logger, plansService)

	paymentsRepo := payments.NewRepository(pool)
	modeDirectory := payments.NewCachedDirectory(payments.NewRepoDirectory(paymentsRepo), redisClient, cfg.ModeCacheTTL)
	paymentsService := payments.NewService(paymentsRepo, plansService, modeDirectory, idempotencyStore, logger, payments.ServiceConfig{
		ReceivableAccount:    cfg.ReceivableAccount,
		PenaltyIncomeAccount: cfg.PenaltyIncomeAccount,
	})
	paymentsHandler := payments.NewHandler(logger, paymentsService, modeDirectory)

	applicationsRepo := applications.NewRepository(pool)
	applicationsService := applications.NewService(applicationsRepo, plansService, applications.Defaults{
		DownPaymentPercent: cfg.DownPaymentPercent,
		InterestRate:       cfg.InterestRate,
		ApplicationFee:     cfg.ApplicationFee,
		RatePeriod:         schedule.RatePeriod(cfg.RatePeriod),
		RepaymentTerm:      cfg.RepaymentTerm,
	}, logger)
	applicationsHandler := applications.NewHandler(logger, applicationsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		ApplicationsHandler: applicationsHandler,
		PlansHandler:        plansHandler,
		PaymentsHandler:     paymentsHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
