package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/latticehq/lattice-backend/infra"
	"github.com/latticehq/lattice-backend/repositories"
	"github.com/latticehq/lattice-backend/usecases"
	"github.com/latticehq/lattice-backend/utils"
)

func main() {
	env := utils.GetStringEnv("ENV", "development")

	var logger *slog.Logger
	if env == "development" {
		logger = slog.New(utils.NewLocalDevHandler(os.Stderr, true))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	ctx := utils.StoreLoggerInContext(context.Background(), logger)

	pgConfig := utils.PGConfig{
		ConnectionString: utils.GetStringEnv("PG_CONNECTION_STRING", ""),
		Hostname:         utils.GetStringEnv("PG_HOSTNAME", "localhost"),
		Port:             utils.GetStringEnv("PG_PORT", "5432"),
		User:             utils.GetStringEnv("PG_USER", "postgres"),
		Password:         utils.GetStringEnv("PG_PASSWORD", ""),
		Database:         utils.GetStringEnv("PG_DATABASE", "lattice"),
	}

	if err := repositories.RunMigrations(env, pgConfig, logger); err != nil {
		logger.ErrorContext(ctx, "failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	pool, err := infra.NewPostgresConnectionPool(ctx, pgConfig.GetConnectionString(env))
	if err != nil {
		logger.ErrorContext(ctx, "failed to create connection pool", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := infra.NewRedisClient(ctx, infra.RedisConfig{
		Address:       utils.GetStringEnv("REDIS_ADDRESS", "localhost:6379"),
		Key:           utils.GetStringEnv("REDIS_KEY", ""),
		Tls:           utils.GetBoolEnv("REDIS_TLS", false),
		TlsSkipVerify: utils.GetBoolEnv("REDIS_TLS_SKIP_VERIFY", false),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	defer redisClient.Close()

	executorGetter := repositories.NewExecutorGetter(pool)
	bus := repositories.NewRedisInvalidationBus(redisClient)

	registry := usecases.NewSchemaRegistry(executorGetter, repositories.CatalogRepositoryPostgresql{}, bus)
	if err := registry.Load(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to load the schema registry", "error", err.Error())
		os.Exit(1)
	}

	listenCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	registry.StartListener(listenCtx)

	logger.InfoContext(ctx, "catalog loaded, listening for invalidations")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.InfoContext(ctx, "shutting down")
}
