package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/grovetrace/api/routes"
	"github.com/angelmondragon/grovetrace/internal/items"
	"github.com/angelmondragon/grovetrace/internal/plantentry"
	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/internal/stock"
	"github.com/angelmondragon/grovetrace/pkg/config"
	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/logger"
	"github.com/angelmondragon/grovetrace/pkg/metrics"
	"github.com/angelmondragon/grovetrace/pkg/migrate"
	"github.com/angelmondragon/grovetrace/pkg/outbox"
	"github.com/angelmondragon/grovetrace/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	itemRepo := items.NewRepository(dbClient.DB())

	var redisClient *redis.Client
	var codes items.CodeGenerator = items.RandomCodeGenerator{}
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		sequence, err := items.NewSequenceCodeGenerator(redisClient, cfg.Traceability.ItemCodePrefix, cfg.Traceability.ItemCodeDigits)
		if err != nil {
			logg.Error(context.Background(), "failed to create item code generator", err)
			os.Exit(1)
		}
		floor, err := sequence.SyncFloor(context.Background(), itemRepo)
		if err != nil {
			logg.Error(context.Background(), "failed to sync item code sequence", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(context.Background(), "item_code_floor", floor), "item code sequence ready")
		codes = sequence
	} else {
		logg.Warn(context.Background(), "redis not configured; using random item codes and no idempotency store")
	}

	defer func() {
		closeErr := dbClient.Close()
		if redisClient != nil {
			closeErr = multierr.Append(closeErr, redisClient.Close())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error closing resources", closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stockService, err := stock.NewService(stock.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	itemService, err := items.NewService(items.ServiceParams{
		Repo:     itemRepo,
		Codes:    codes,
		Stock:    stockService,
		StockUOM: cfg.Traceability.StockUOM,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create item service", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	plantRepo := plants.NewRepository(dbClient.DB())
	plantService, err := plants.NewService(plantRepo, dbClient, logg, events)
	if err != nil {
		logg.Error(context.Background(), "failed to create plant service", err)
		os.Exit(1)
	}

	plantEntryService, err := plantentry.NewService(plantentry.ServiceParams{
		Repo:    plantentry.NewRepository(dbClient.DB()),
		Plants:  plantRepo,
		Items:   itemService,
		Stock:   stockService,
		Outbox:  events,
		Tx:      dbClient,
		Metrics: metrics.NewPlantEntryMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plant entry service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, plantService, plantEntryService, itemService, stockService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
