package payment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors/constants"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/paymentrpc"
)

// GRPCInitiator is the adapter that talks to the payment initiator over gRPC.
type GRPCInitiator struct {
	client  *paymentrpc.InitiatorClient
	timeout time.Duration
}

var _ ports.PaymentInitiator = (*GRPCInitiator)(nil)

// Dial opens a lazily connected client to addr. The returned func closes it.
func Dial(addr string, timeout time.Duration) (*GRPCInitiator, func() error, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial payment initiator %s: %w", addr, err)
	}
	return New(conn, timeout), conn.Close, nil
}

// New wraps an existing connection. A zero timeout leaves the caller's
// deadline alone.
func New(cc grpc.ClientConnInterface, timeout time.Duration) *GRPCInitiator {
	return &GRPCInitiator{client: paymentrpc.NewInitiatorClient(cc), timeout: timeout}
}

func (g *GRPCInitiator) Initiate(ctx context.Context, req ports.PaymentRequest) (ports.PaymentInitiation, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, constants.MetadataIdempotencyKey, req.OrderNumber)

	in, err := paymentrpc.InitiateRequest{
		OrderID:       req.OrderID,
		OrderNumber:   req.OrderNumber,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerID:    req.Customer.CustomerID,
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CallbackURL:   req.CallbackURL,
	}.ToStruct()
	if err != nil {
		return ports.PaymentInitiation{}, fmt.Errorf("encode initiate request: %w", err)
	}

	out, err := g.client.Initiate(ctx, in)
	if err != nil {
		return ports.PaymentInitiation{}, fmt.Errorf("grpc Initiate: %w", err)
	}
	res, err := paymentrpc.ResponseFromStruct(out)
	if err != nil {
		return ports.PaymentInitiation{}, err
	}
	return ports.PaymentInitiation{Reference: res.Reference, AuthorizationURL: res.AuthorizationURL}, nil
}
