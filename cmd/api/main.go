package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/quenbyco/storefront-backend/api/routes"
	"github.com/quenbyco/storefront-backend/internal/address"
	"github.com/quenbyco/storefront-backend/internal/cart"
	"github.com/quenbyco/storefront-backend/internal/catalog"
	"github.com/quenbyco/storefront-backend/internal/checkout"
	"github.com/quenbyco/storefront-backend/internal/inventory"
	"github.com/quenbyco/storefront-backend/internal/orders"
	"github.com/quenbyco/storefront-backend/internal/payments"
	"github.com/quenbyco/storefront-backend/internal/pricing"
	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/db"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/metrics"
	"github.com/quenbyco/storefront-backend/pkg/migrate"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
	"github.com/quenbyco/storefront-backend/pkg/redis"
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

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	storefrontMetrics := metrics.NewStorefrontMetrics(promRegistry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:           catalog.NewRepository(dbClient.DB()),
		Engine:         pricing.NewEngine(),
		Cache:          redisClient,
		Logger:         logg,
		SearchCacheTTL: cfg.Catalog.SearchCacheTTL,
		SearchPageSize: cfg.Catalog.SearchPageSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	inventoryChecker, err := inventory.NewService(inventory.ServiceParams{
		Repo:              inventory.NewRepository(dbClient.DB()),
		LowStockThreshold: cfg.Cart.LowStockThreshold,
		CheckTimeout:      cfg.Checkout.UpstreamTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory checker", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		DB:      dbClient,
		Items:   cart.NewRepository(dbClient.DB()),
		Catalog: catalog.NewRepository(dbClient.DB()),
		Levels:  inventory.NewRepository(dbClient.DB()),
		Checker: inventoryChecker,
		Outbox:  outboxService,
		Logger:  logg,
		Metrics: storefrontMetrics,
		Config:  cfg.Cart,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(address.ServiceParams{
		DB:   dbClient,
		Repo: address.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	paymentProvider, err := payments.NewSquareProvider(context.Background(), payments.SquareProviderParams{
		Config: cfg.Square,
		Store:  redisClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment provider", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Items:   cart.NewRepository(dbClient.DB()),
		Outbox:  outboxService,
		Logger:  logg,
		Metrics: storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:       dbClient,
		Sessions: checkout.NewRepository(dbClient.DB()),
		Cart:     cartService,
		Payments: paymentProvider,
		Orders:   orderService,
		Dedupe:   redisClient,
		Outbox:   outboxService,
		Logger:   logg,
		Metrics:  storefrontMetrics,
		Config:   cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
			promRegistry,
			catalogService,
			cartService,
			addressService,
			checkoutService,
			orderService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
