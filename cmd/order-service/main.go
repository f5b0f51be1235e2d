package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/adapters/directory"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/adapters/payment"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/adapters/sqlstore"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/app"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/infra/httpx"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/cache"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/config"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/metrics"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadOrderService()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.Environment)
		if err != nil {
			logger.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	static, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		logger.Error("failed to load vendor directory", "path", cfg.DirectoryPath, "error", err)
		os.Exit(1)
	}
	var vendors ports.VendorDirectory = static
	if cfg.RedisAddr != "" {
		redisCache, closeCache := cache.NewRedisCache(cfg.RedisAddr, "orders")
		defer closeCache()
		vendors = directory.NewCached(static, redisCache, cfg.VendorCacheTTL, logger)
	}

	payments, closePayments, err := payment.Dial(cfg.PaymentInitiatorAddr, cfg.PaymentTimeout)
	if err != nil {
		logger.Error("failed to dial payment initiator", "addr", cfg.PaymentInitiatorAddr, "error", err)
		os.Exit(1)
	}
	defer closePayments()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := app.NewEngine(store, vendors, static, payments, app.Config{
		PlatformCommissionRate: cfg.PlatformCommissionRate,
		MinimumPayout:          cfg.MinimumPayout,
		PaymentCallbackURL:     cfg.PaymentCallbackURL,
	},
		app.WithLogger(logger),
		app.WithMetrics(metrics.NewEngine(reg)),
		app.WithActivityLog(store),
	)

	router := httpx.NewRouter(httpx.NewHandler(engine, logger), httpx.RouterOptions{
		Metrics:  metrics.NewServerMetrics(reg, "http"),
		Gatherer: reg,
		Health:   store.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("order service HTTP running",
			"addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "vendors", static.Vendors())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("order service stopped")
}

func openStore(ctx context.Context, cfg config.OrderService) (*sqlstore.Store, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		return sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
}
