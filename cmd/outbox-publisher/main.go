package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/printfarm-backend/pkg/bootstrap"
	"github.com/angelmondragon/printfarm-backend/pkg/instance"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox/registry"
	"github.com/angelmondragon/printfarm-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	workerID := instance.GetID()
	metricsRegistry := metrics.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(metricsRegistry),
		Instance:      workerID,
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    workerID,
	})
	if cfg.Outbox.MetricsAddr != "" {
		go metrics.Serve(ctx, logg, cfg.Outbox.MetricsAddr, metricsRegistry)
	}

	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}
