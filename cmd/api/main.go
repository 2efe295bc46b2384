package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hatbazar/marketplace-backend/api/controllers"
	"github.com/hatbazar/marketplace-backend/api/routes"
	"github.com/hatbazar/marketplace-backend/internal/catalog"
	"github.com/hatbazar/marketplace-backend/internal/commissions"
	"github.com/hatbazar/marketplace-backend/internal/coupons"
	"github.com/hatbazar/marketplace-backend/internal/inventory"
	"github.com/hatbazar/marketplace-backend/internal/orders"
	"github.com/hatbazar/marketplace-backend/internal/payments"
	"github.com/hatbazar/marketplace-backend/internal/payouts"
	"github.com/hatbazar/marketplace-backend/internal/pricing"
	"github.com/hatbazar/marketplace-backend/pkg/bankpay"
	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/db"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
	"github.com/hatbazar/marketplace-backend/pkg/metrics"
	"github.com/hatbazar/marketplace-backend/pkg/migrate"
	"github.com/hatbazar/marketplace-backend/pkg/outbox"
	"github.com/hatbazar/marketplace-backend/pkg/redis"
	"github.com/hatbazar/marketplace-backend/pkg/walletpay"
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
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	pricer := pricing.NewEngine(cfg.Pricing, couponRepo)
	ledger := inventory.NewLedger()

	commissionSvc, err := commissions.NewService(commissions.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create commissions service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		ordersRepo,
		catalogRepo,
		ledger,
		pricer,
		commissionSvc,
		dbClient,
		outboxSvc,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateways, err := buildGateways(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment gateways", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		ordersRepo,
		gateways,
		commissionSvc,
		pricer,
		dbClient,
		outboxSvc,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	payoutsSvc, err := payouts.NewService(
		payouts.NewRepository(dbClient.DB()),
		commissionSvc,
		dbClient,
		outboxSvc,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			Pingers: map[string]controllers.Pinger{
				"postgres": dbClient,
				"redis":    redisClient,
			},
			Orders:   ordersSvc,
			Payments: paymentsSvc,
			Payouts:  payoutsSvc,
			Gatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildGateways wires the redirect providers that have credentials
// configured. Cash on delivery is always available.
func buildGateways(cfg *config.Config, logg *logger.Logger) ([]payments.Gateway, error) {
	gateways := []payments.Gateway{payments.NewCODGateway()}

	if cfg.Wallet.BaseURL != "" {
		client, err := walletpay.NewClient(cfg.Wallet, logg)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, payments.NewWalletGateway(client))
	} else {
		logg.Warn(context.Background(), "wallet gateway not configured, wallet payments disabled")
	}

	if cfg.Bank.BaseURL != "" {
		client, err := bankpay.NewClient(cfg.Bank, logg)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, payments.NewBankGateway(client))
	} else {
		logg.Warn(context.Background(), "bank gateway not configured, bank payments disabled")
	}

	return gateways, nil
}
