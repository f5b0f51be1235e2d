package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors/constants"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/payment.v1.PaymentInitiator/Initiate"}

func TestUnaryServerInterceptorCopiesMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		constants.MetadataRequestID, "req-1",
		constants.MetadataIdempotencyKey, "ORD-20261016-0001",
	))

	var gotID, gotKey string
	_, err := UnaryServerInterceptor()(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
		gotID = ctx.Value(constants.ContextKeyRequestID).(string)
		gotKey = IdempotencyKeyFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", gotID)
	assert.Equal(t, "ORD-20261016-0001", gotKey)
}

func TestContextWithPropagatedID(t *testing.T) {
	assert.Equal(t, context.Background(), ContextWithPropagatedID(context.Background()))

	ctx := ContextWithPropagatedID(WithRequestID(context.Background(), "req-2"))
	ctx = ContextWithPropagatedID(ctx)
	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"req-2"}, md.Get(constants.MetadataRequestID))
}

func TestTraceServerInterceptorLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithRequestID(context.Background(), "req-3")

	_, err := TraceServerInterceptor(logger)(ctx, nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "bad amount")
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "grpc call failed")
	assert.Contains(t, buf.String(), "code=InvalidArgument")
	assert.Contains(t, buf.String(), "request_id=req-3")

	buf.Reset()
	_, err = TraceServerInterceptor(logger)(ctx, nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "code=OK")
}
