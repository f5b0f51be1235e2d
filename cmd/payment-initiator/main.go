package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	paymentinitiator "github.com/jcmexdev/multivendor-orders/internal/payment-initiator"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/cache"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/config"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/paymentrpc"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadPaymentInitiator()
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

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryServerInterceptor(),
			interceptors.TraceServerInterceptor(logger),
		),
	)

	opts := []paymentinitiator.Option{paymentinitiator.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		redisCache, closeCache := cache.NewRedisCache(cfg.RedisAddr, "payment")
		defer closeCache()
		opts = append(opts, paymentinitiator.WithCache(redisCache, cfg.CacheTTL))
	}
	paymentrpc.RegisterInitiatorServer(grpcServer, paymentinitiator.NewServer(cfg.AuthorizationBase, opts...))

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	logger.Info("payment initiator gRPC running", "addr", cfg.GRPCAddr)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
