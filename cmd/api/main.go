package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/printfarm-backend/api/routes"
	"github.com/angelmondragon/printfarm-backend/internal/audit"
	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/internal/orders"
	"github.com/angelmondragon/printfarm-backend/internal/pricing"
	product "github.com/angelmondragon/printfarm-backend/internal/products"
	"github.com/angelmondragon/printfarm-backend/pkg/bootstrap"
	"github.com/angelmondragon/printfarm-backend/pkg/instance"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox"
)

const serviceName = "api"

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

	registry := metrics.NewRegistry()
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	auditSink, err := audit.NewSink(dbClient, outboxService, logg, serviceName)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	catalog, err := product.NewCatalog(product.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	depot, err := filaments.NewDepot(filaments.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("filament depot: %w", err)
	}
	calculator, err := inventory.NewCalculator(conn, logg)
	if err != nil {
		return fmt.Errorf("stock calculator: %w", err)
	}
	pricer, err := pricing.NewCatalogPricer(conn)
	if err != nil {
		return fmt.Errorf("pricer: %w", err)
	}
	ledger := inventory.NewLedger(conn)

	gateway, err := inventory.NewGateway(inventory.GatewayParams{
		TX:         dbClient,
		Catalog:    catalog,
		Ledger:     ledger,
		Calculator: calculator,
		Auditor:    auditSink,
		Metrics:    fulfillmentMetrics,
		Logger:     logg,
	})
	if err != nil {
		return fmt.Errorf("stock gateway: %w", err)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		TX:                   dbClient,
		Repository:           orders.NewRepository(conn),
		Catalog:              catalog,
		Depot:                depot,
		Ledger:               ledger,
		Pricer:               pricer,
		Auditor:              auditSink,
		Metrics:              fulfillmentMetrics,
		Logger:               logg,
		LegacyStatusFallback: cfg.FeatureFlags.LegacyStatusFallback,
	})
	if err != nil {
		return fmt.Errorf("orders service: %w", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.RouterParams{
			DB:      dbClient,
			Redis:   redisClient,
			Orders:  ordersService,
			Stock:   calculator,
			Gateway: gateway,
			Catalog: catalog,
			Depot:   depot,
			Metrics: metrics.Handler(registry),
		}),
		ReadHeaderTimeout: cfg.App.ReadHeaderTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(shutdownCtx, "shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}
