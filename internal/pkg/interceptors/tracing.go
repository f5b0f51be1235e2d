package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// TraceServerInterceptor logs every unary call with its outcome. It expects
// UnaryServerInterceptor to run first so the ids are on the context.
func TraceServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		attrs := []any{
			slog.String("method", info.FullMethod),
			slog.String("request_id", RequestIDFromContext(ctx)),
			slog.String("idempotency_key", IdempotencyKeyFromContext(ctx)),
			slog.String("code", status.Code(err).String()),
			slog.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.WarnContext(ctx, "grpc call failed", append(attrs, slog.Any("error", err))...)
		} else {
			logger.InfoContext(ctx, "grpc call", attrs...)
		}
		return resp, err
	}
}
