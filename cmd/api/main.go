package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/routes"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/bins"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/collections"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/payments"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/rewards"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/config"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/metrics"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/migrate"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/redis"
)

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	binRepo := bins.NewRepository(dbClient.DB())
	residentRepo := residents.NewRepository(dbClient.DB())
	invoiceRepo := invoices.NewRepository(dbClient.DB())
	collectionRepo := collections.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	creditRepo := payments.NewCreditRepository(dbClient.DB())

	collectionService, err := collections.NewService(dbClient, collectionRepo, binRepo, residentRepo, rewards.RatesFromConfig(cfg.Rewards))
	if err != nil {
		logg.Error(context.Background(), "failed to create collection service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(
		dbClient,
		paymentRepo,
		creditRepo,
		invoiceRepo,
		residentRepo,
		payments.NewSimulatedGateway(cfg.Gateway),
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			collectionService,
			paymentService,
			invoiceRepo,
			residentRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
