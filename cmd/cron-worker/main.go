package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printfarm-backend/internal/cron"
	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/pkg/bootstrap"
	"github.com/angelmondragon/printfarm-backend/pkg/instance"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox"
)

const serviceName = "cron-worker"

func main() {
	rt, err := bootstrap.Load(serviceName)
	if err == nil {
		err = run(rt)
	}
	rt.Exit(err)
}

func run(rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := rt.OpenDB(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.OpenRedis(ctx)
	if err != nil {
		return err
	}

	workerID := instance.GetID()
	metricsRegistry := metrics.NewRegistry()
	lock, err := cron.NewRedisLock(cron.LockParams{
		Client:   redisClient,
		Key:      redisClient.LockKey(serviceName),
		TTL:      cfg.Cron.LockTTL,
		Instance: workerID,
	})
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	depot, err := filaments.NewDepot(filaments.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("filament depot: %w", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Outbox.RetentionDays,
		MinAttempts:   cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}
	lowFilamentJob, err := cron.NewLowFilamentJob(cron.LowFilamentJobParams{
		Logger:         logg,
		DB:             dbClient,
		Spools:         depot,
		Outbox:         outbox.NewService(outboxRepo, logg),
		ThresholdGrams: decimal.NewFromFloat(cfg.Fulfillment.LowFilamentThresholdGrams),
		ServiceName:    serviceName,
	})
	if err != nil {
		return fmt.Errorf("low filament job: %w", err)
	}

	registry, err := cron.NewRegistry(retentionJob, lowFilamentJob)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(metricsRegistry),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
		Instance:   workerID,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	if cfg.App.Port != "" {
		go metrics.Serve(ctx, logg, ":"+cfg.App.Port, metricsRegistry)
	}

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}
