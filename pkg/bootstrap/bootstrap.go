// Package bootstrap holds the start-up sequence shared by the binaries:
// environment, config, logger and the connections that must be closed on the
// way out.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/printfarm-backend/pkg/config"
	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/migrate"
	"github.com/angelmondragon/printfarm-backend/pkg/redis"
)

// Runtime is one booted process.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Load reads .env (if present) and the environment, then builds the logger
// the config asks for. The returned Runtime always carries a usable logger,
// even when config loading fails.
func Load(service string) (*Runtime, error) {
	rt := &Runtime{Service: service, Logger: logger.New(logger.Options{ServiceName: service})}

	if err := godotenv.Load(); err != nil {
		rt.Logger.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return rt, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service
	rt.Config = cfg
	rt.Logger = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	return rt, nil
}

// OnClose registers fn to run during Close. Closers run in reverse order.
func (r *Runtime) OnClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// OpenDB connects to the database and, in dev, migrates it.
func (r *Runtime) OpenDB(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, r.Config.DB, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	r.OnClose("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, r.Config, r.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

// OpenRedis connects to redis.
func (r *Runtime) OpenRedis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	r.OnClose("redis", client.Close)
	return client, nil
}

// Close runs the registered closers newest first and reports every failure.
func (r *Runtime) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	r.closers = nil
	return errs
}

// Exit closes the runtime and terminates the process. A non-nil runErr other
// than cancellation is logged and exits with status 1.
func (r *Runtime) Exit(runErr error) {
	ctx := context.Background()
	if err := r.Close(); err != nil {
		r.Logger.Error(ctx, "shutdown cleanup failed", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		r.Logger.Error(ctx, r.Service+" stopped unexpectedly", runErr)
		os.Exit(1)
	}
	r.Logger.Info(ctx, r.Service+" shut down gracefully")
}
