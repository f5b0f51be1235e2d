package ports

import (
	"context"
	"time"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

// SubOrderTransition is a conditional status change: it applies only if the
// sub-order is still in From.
type SubOrderTransition struct {
	SubOrderID string
	From       domain.SubOrderStatus
	To         domain.SubOrderStatus
	Reason     string
	At         time.Time
}

// ShippingUpdate overwrites the stored shipping split of an order.
type ShippingUpdate struct {
	OrderID  string
	Strategy domain.ShippingStrategy
	Total    int64
	// Amounts is keyed by sub-order id.
	Amounts map[string]int64
	At      time.Time
}

// RefundReview is a conditional PENDING -> APPROVED|REJECTED change.
type RefundReview struct {
	RefundID       string
	Status         domain.RefundStatus
	ApprovedAmount *int64
	ReviewedBy     string
	Note           string
	At             time.Time
}

// RefundFilter narrows a refund listing. Empty fields are ignored.
type RefundFilter struct {
	TenantID   string
	OrderID    string
	CustomerID string
	Audience   domain.Audience
}

// OrderStore persists Parent Orders, their items and sub-orders.
// Methods returning (bool, error) perform a conditional write and report
// false when the expected prior state no longer holds.
type OrderStore interface {
	// CreateOrder writes the order, its sub-orders and items in one
	// transaction and assigns the order number. When the checkout key was
	// already used, the existing order is returned with created == false.
	CreateOrder(ctx context.Context, order *domain.Order) (stored *domain.Order, created bool, err error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetSubOrder(ctx context.Context, subOrderID string) (*domain.SubOrder, error)
	ListSubOrderStatuses(ctx context.Context, orderID string) ([]domain.SubOrderStatus, error)
	TransitionSubOrder(ctx context.Context, t SubOrderTransition) (bool, error)
	// SetDerivedStatus writes a derived parent status. It reports false and
	// leaves the row alone when the order has expired.
	SetDerivedStatus(ctx context.Context, orderID string, status domain.ParentStatus, at time.Time) (bool, error)
	SaveShippingAllocation(ctx context.Context, u ShippingUpdate) error
	// ExpireOrder cancels every non-terminal sub-order and marks the order
	// EXPIRED, atomically, if it is still open and unpaid.
	ExpireOrder(ctx context.Context, orderID, reason string, at time.Time) (bool, error)
	RecordPaymentAttempt(ctx context.Context, orderID, reference string, at time.Time) (bool, error)
	SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus, at time.Time) (bool, error)
	ListExpirable(ctx context.Context, tenantID string, createdBefore time.Time) ([]string, error)
	ListOrders(ctx context.Context, tenantID string, limit int) ([]domain.Order, error)
	ListPayableSubOrders(ctx context.Context, vendorID string) ([]domain.SubOrder, error)
	MarkPayoutsSettled(ctx context.Context, vendorID string, subOrderIDs []string, at time.Time) (int64, error)
}

// RefundStore persists refund intents.
type RefundStore interface {
	// CreateRefund assigns the refund number and inserts the intent.
	CreateRefund(ctx context.Context, r *domain.RefundIntent) error
	GetRefund(ctx context.Context, refundID string) (*domain.RefundIntent, error)
	ReviewRefund(ctx context.Context, r RefundReview) (bool, error)
	CancelRefund(ctx context.Context, refundID string, at time.Time) (bool, error)
	ListRefunds(ctx context.Context, f RefundFilter) ([]domain.RefundIntent, error)
}

// Store is the full persistence port.
type Store interface {
	OrderStore
	RefundStore
}
