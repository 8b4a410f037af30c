package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/financed-sales/internal/app"
	jobmetrics "github.com/odyssey-erp/financed-sales/internal/jobs"
	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/platform/db"
	"github.com/odyssey-erp/financed-sales/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	plansRepo := plans.NewRepository(pool)
	plansService := plans.NewService(plansRepo, logger)

	metrics := jobmetrics.NewMetrics(nil)
	penaltyScan := jobs.NewPenaltyScanJob(plansService, logger, metrics)

	penaltyTask, err := jobs.NewPenaltyScanTask(jobs.PenaltyScanPayload{})
	if err != nil {
		logger.Error("build penalty scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPenaltyScan, Handler: penaltyScan.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PenaltyScanSpec, Task: penaltyTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting",
		slog.String("redis", cfg.RedisAddr),
		slog.String("penalty_scan_spec", cfg.PenaltyScanSpec),
	)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
