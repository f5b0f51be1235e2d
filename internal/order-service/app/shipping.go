package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// ShippingAllocator distributes an order's shipping total over its sub-orders.
type ShippingAllocator struct {
	store   ports.OrderStore
	catalog ports.ProductCatalog
	rt      *runtime
}

// Reallocation is the outcome of an explicit re-allocation.
type Reallocation struct {
	Order    *domain.Order
	Strategy domain.ShippingStrategy
	Amounts  map[string]int64
}

// plan computes the allocation of order.Totals.Shipping without writing.
// Weights missing on the items are looked up in the catalog; a catalog
// failure only disables the weight strategy.
func (a *ShippingAllocator) plan(ctx context.Context, order *domain.Order) (domain.ShippingAllocation, error) {
	bases := make([]domain.ShareBasis, len(order.SubOrders))
	for i, so := range order.SubOrders {
		bases[i] = domain.ShareBasis{Subtotal: so.Totals.Subtotal, WeightKnown: len(so.Items) > 0}
		for _, it := range itemsOf(order, so) {
			w, ok := a.weight(ctx, it)
			if !ok {
				bases[i].WeightKnown = false
				break
			}
			bases[i].Weight = bases[i].Weight.Add(w.Mul(decimal.NewFromInt(it.Quantity)))
		}
	}
	return domain.AllocateShipping(order.Totals.Shipping, bases), nil
}

// itemsOf prefers the sub-order's own items and falls back to filtering the
// order's flat item list, which is how stored orders come back.
func itemsOf(order *domain.Order, so domain.SubOrder) []domain.OrderItem {
	if len(so.Items) > 0 {
		return so.Items
	}
	var out []domain.OrderItem
	for _, it := range order.Items {
		if it.SubOrderID == so.ID {
			out = append(out, it)
		}
	}
	return out
}

func (a *ShippingAllocator) weight(ctx context.Context, it domain.OrderItem) (decimal.Decimal, bool) {
	if it.Weight.Valid {
		return it.Weight.Decimal, it.Weight.Decimal.IsPositive()
	}
	if a.catalog == nil {
		return decimal.Zero, false
	}
	w, ok, err := a.catalog.Weight(ctx, it.ProductID)
	if err != nil {
		a.rt.logger.WarnContext(ctx, "product weight lookup failed",
			"product_id", it.ProductID, "error", err)
		return decimal.Zero, false
	}
	return w, ok && w.IsPositive()
}

// Reallocate redistributes a new shipping total over an existing order. It
// overwrites each sub-order's shipping amount and the order's shipping total
// and rebalances grand totals. Terminal and already paid orders are refused,
// and so are orders whose grand total was already sent to the payment
// initiator.
func (a *ShippingAllocator) Reallocate(ctx context.Context, orderID string, total int64, actor domain.Actor) (res *Reallocation, err error) {
	ctx, span := a.rt.tracer.Start(ctx, "ShippingAllocator.Reallocate")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID))

	if total < 0 {
		return nil, domain.Validation(domain.CodeInvalidTotals, "shipping total must not be negative")
	}
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, domain.Conflict(domain.CodeOrderTerminal, "order is no longer open").
			WithMetadata("order_id", orderID, "status", string(order.Status))
	}
	if order.PaymentStatus.Settled() {
		return nil, domain.Conflict(domain.CodePaymentSettled, "order payment is already settled").
			WithMetadata("order_id", orderID)
	}
	if order.PaymentAttempts > 0 {
		return nil, domain.Conflict(domain.CodePaymentInitiated, "payment was already initiated for this amount").
			WithMetadata("order_id", orderID, "payment_reference", order.PaymentReference)
	}
	next := order.Totals
	next.Shipping = total
	if grand, ok := next.Sum(); !ok || grand <= 0 {
		return nil, domain.Validation(domain.CodeInvalidTotals, "grand total must stay positive").
			WithMetadata("order_id", orderID)
	}

	order.Totals.Shipping = total
	alloc, err := a.plan(ctx, order)
	if err != nil {
		return nil, err
	}

	amounts := make(map[string]int64, len(order.SubOrders))
	for i, so := range order.SubOrders {
		amounts[so.ID] = alloc.Amounts[i]
	}
	err = a.store.SaveShippingAllocation(ctx, ports.ShippingUpdate{
		OrderID:  orderID,
		Strategy: alloc.Strategy,
		Total:    total,
		Amounts:  amounts,
		At:       a.rt.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("reallocate shipping: %w", err)
	}

	a.rt.metrics.ShippingAllocations.WithLabelValues(string(alloc.Strategy)).Inc()
	a.rt.activity.Record(ctx, orderID, orderlog.ActionShippingAllocated, actor.String(), map[string]any{
		"strategy": alloc.Strategy,
		"total":    total,
		"amounts":  amounts,
	})
	a.rt.logger.InfoContext(ctx, "shipping reallocated",
		"order_id", orderID, "strategy", string(alloc.Strategy), "total", total)

	updated, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Reallocation{Order: updated, Strategy: alloc.Strategy, Amounts: amounts}, nil
}
