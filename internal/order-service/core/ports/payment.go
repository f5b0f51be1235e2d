package ports

import (
	"context"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

// PaymentRequest asks the gateway to start collecting payment for an
// existing order. OrderNumber doubles as the idempotency key.
type PaymentRequest struct {
	OrderID     string
	OrderNumber string
	Amount      int64
	Currency    string
	Customer    domain.CustomerSnapshot
	CallbackURL string
}

// PaymentInitiation is the gateway's answer.
type PaymentInitiation struct {
	Reference        string
	AuthorizationURL string
}

// PaymentInitiator is the opaque payment gateway. Implementations must be
// idempotent per order number.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req PaymentRequest) (PaymentInitiation, error)
}
