package interceptors

import (
	"context"

	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors/constants"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

// WithIdempotencyKey stores the idempotency key on ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyIdempotencyKey, key)
}

// RequestIDFromContext returns the request id carried by ctx, falling back
// to incoming gRPC metadata.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return GetMetadataValue(ctx, constants.MetadataRequestID)
}

// IdempotencyKeyFromContext is RequestIDFromContext for the idempotency key.
func IdempotencyKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(constants.ContextKeyIdempotencyKey).(string); ok && key != "" {
		return key
	}
	return GetMetadataValue(ctx, constants.MetadataIdempotencyKey)
}

// UnaryServerInterceptor copies x-request-id and x-idempotency-key from the
// incoming metadata into the context.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(constants.MetadataRequestID); len(ids) > 0 {
				ctx = WithRequestID(ctx, ids[0])
			}
			if keys := md.Get(constants.MetadataIdempotencyKey); len(keys) > 0 {
				ctx = WithIdempotencyKey(ctx, keys[0])
			}
		}
		return handler(ctx, req)
	}
}

// UnaryClientInterceptor forwards the request id of ctx to the callee.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(ContextWithPropagatedID(ctx), method, req, reply, cc, opts...)
	}
}

// ContextWithPropagatedID appends the request id to the outgoing metadata
// unless it is already there.
func ContextWithPropagatedID(ctx context.Context) context.Context {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return ctx
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(constants.MetadataRequestID)) > 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, constants.MetadataRequestID, id)
}

func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
