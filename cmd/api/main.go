package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/geoinstrumentos/catalog-backend/api"
	"github.com/geoinstrumentos/catalog-backend/api/controllers"
	"github.com/geoinstrumentos/catalog-backend/api/routes"
	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	"github.com/geoinstrumentos/catalog-backend/internal/checkout"
	product "github.com/geoinstrumentos/catalog-backend/internal/products"
	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	upload "github.com/geoinstrumentos/catalog-backend/internal/uploads"
	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	"github.com/geoinstrumentos/catalog-backend/pkg/db"
	"github.com/geoinstrumentos/catalog-backend/pkg/instance"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/metrics"
	"github.com/geoinstrumentos/catalog-backend/pkg/migrate"
	"github.com/geoinstrumentos/catalog-backend/pkg/postcommit"
	"github.com/geoinstrumentos/catalog-backend/pkg/redis"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
)

const serviceName = "catalog-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	dbClients, err := db.NewClients(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClients.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClients.Privileged))

	store, err := storage.New(ctx, cfg.Storage, logg)
	requireResource(ctx, logg, "object storage", err)

	ready := map[string]controllers.Pinger{
		"db_privileged": dbClients.Privileged,
		"db_restricted": dbClients.Restricted,
		"storage":       store,
	}

	var limiter redis.RateLimiter
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		limiter = redisClient
		ready["redis"] = redisClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	cleanupMetrics := metrics.NewCleanupMetrics(registry)

	urls := storage.NewURLBuilder(cfg.Storage.PublicDomain, logg)
	typeRepo := producttype.NewRepository(dbClients.Privileged.DB())

	typeService, err := producttype.NewService(typeRepo)
	requireResource(ctx, logg, "product type service", err)

	productService, err := product.NewService(product.ServiceParams{
		Repo:       product.NewRepository(dbClients.Privileged.DB()),
		TypeRepo:   typeRepo,
		DB:         dbClients.Privileged,
		Store:      store,
		URLs:       urls,
		PostCommit: postcommit.NewRunner(logg, cleanupMetrics),
		Logger:     logg,
	})
	requireResource(ctx, logg, "product service", err)

	catalog, err := product.NewCatalog(product.NewPublicRepository(dbClients.Restricted.DB()), urls)
	requireResource(ctx, logg, "catalog service", err)

	uploadService, err := upload.NewService(store, urls, cfg.Upload.URLExpiry, cfg.Upload.MaxUploadBytes())
	requireResource(ctx, logg, "upload service", err)

	checkoutService, err := checkout.NewService(catalog, cfg.Checkout)
	requireResource(ctx, logg, "checkout service", err)

	gate, err := auth.NewGate(cfg.Admin, cfg.App)
	requireResource(ctx, logg, "auth gate", err)

	handler := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		Ready:        ready,
		Gate:         gate,
		Guard:        auth.NewGuard(cfg.Admin),
		Limiter:      limiter,
		Products:     productService,
		Catalog:      catalog,
		ProductTypes: typeService,
		Uploads:      uploadService,
		Checkout:     checkoutService,
		HTTPMetrics:  httpMetrics,
		Gatherer:     registry,
	})

	logg.Info(ctx, "starting api server")
	if err := api.NewServer(addr, handler, logg).Run(ctx); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
