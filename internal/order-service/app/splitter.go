package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// CheckoutItem is one requested line, tagged with its owning vendor.
type CheckoutItem struct {
	VendorID  string
	ProductID string
	Name      string
	Quantity  int64
	UnitPrice int64
	Discount  int64
	// Weight is the per-unit weight when the storefront already knows it.
	// Otherwise the product catalog is consulted.
	Weight decimal.NullDecimal
}

// CheckoutRequest is one customer purchase. Totals are pre-computed by the
// storefront and become the customer-facing contract.
type CheckoutRequest struct {
	TenantID string
	// CheckoutKey makes the checkout idempotent within the tenant.
	CheckoutKey   string
	Customer      domain.CustomerSnapshot
	Currency      string
	PaymentMethod domain.PaymentMethod
	Items         []CheckoutItem
	Totals        domain.Totals
}

// SplitResult is the stored order. Replayed is true when the checkout key
// had already produced it.
type SplitResult struct {
	Order    *domain.Order
	Replayed bool
}

// Splitter turns a checkout into a Parent Order with one Sub-Order per vendor.
type Splitter struct {
	store        ports.OrderStore
	directory    ports.VendorDirectory
	shipping     *ShippingAllocator
	payouts      *PayoutCalculator
	platformRate decimal.Decimal
	rt           *runtime
}

// Split validates the request, resolves every vendor, allocates shipping, tax
// and discount, snapshots commission, and stores the whole order in a single
// transaction. Nothing is written when any step fails.
func (s *Splitter) Split(ctx context.Context, req CheckoutRequest) (res *SplitResult, err error) {
	ctx, span := s.rt.tracer.Start(ctx, "Splitter.Split")
	defer func() { endSpan(span, err) }()

	currency, err := validateCheckout(req)
	if err != nil {
		return nil, err
	}

	order, err := s.build(ctx, req, currency)
	if err != nil {
		return nil, err
	}
	alloc, err := s.shipping.plan(ctx, order)
	if err != nil {
		return nil, err
	}
	applyAllocation(order, alloc)

	stored, created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("split: store order: %w", err)
	}
	span.SetAttributes(
		attribute.String("order.id", stored.ID),
		attribute.String("order.number", stored.Number),
		attribute.Int("order.sub_orders", len(stored.SubOrders)),
	)

	if !created {
		s.rt.metrics.CheckoutReplays.Inc()
		s.rt.logger.InfoContext(ctx, "checkout replayed",
			"order_id", stored.ID, "order_number", stored.Number, "tenant_id", stored.TenantID)
		return &SplitResult{Order: stored, Replayed: true}, nil
	}

	s.rt.metrics.OrdersSplit.Inc()
	s.rt.metrics.SubOrdersCreated.Add(float64(len(stored.SubOrders)))
	s.rt.metrics.ShippingAllocations.WithLabelValues(string(alloc.Strategy)).Inc()

	subNumbers := make([]string, len(stored.SubOrders))
	for i, so := range stored.SubOrders {
		subNumbers[i] = so.Number
	}
	s.rt.activity.Record(ctx, stored.ID, orderlog.ActionSplit, domain.System.String(), map[string]any{
		"order_number": stored.Number,
		"sub_orders":   subNumbers,
		"grand_total":  stored.Totals.Grand,
	})
	s.rt.activity.Record(ctx, stored.ID, orderlog.ActionShippingAllocated, domain.System.String(), map[string]any{
		"strategy": alloc.Strategy,
		"total":    stored.Totals.Shipping,
		"amounts":  alloc.Amounts,
	})
	s.rt.logger.InfoContext(ctx, "order split",
		"order_id", stored.ID,
		"order_number", stored.Number,
		"tenant_id", stored.TenantID,
		"sub_orders", len(stored.SubOrders),
		"strategy", string(alloc.Strategy),
	)
	return &SplitResult{Order: stored}, nil
}

func validateCheckout(req CheckoutRequest) (string, error) {
	if req.TenantID == "" {
		return "", domain.Validation(domain.CodeMissingTenant, "tenant id is required")
	}
	if len(req.Items) == 0 {
		return "", domain.Validation(domain.CodeEmptyItems, "checkout has no items")
	}
	currency, ok := domain.NormalizeCurrency(req.Currency)
	if !ok {
		return "", domain.Validation(domain.CodeInvalidCurrency, "currency must be an ISO 4217 code").
			WithMetadata("currency", req.Currency)
	}
	if !req.PaymentMethod.Valid() {
		return "", domain.Validation(domain.CodeInvalidPayment, "unknown payment method").
			WithMetadata("payment_method", string(req.PaymentMethod))
	}

	var lines int64
	for i, it := range req.Items {
		if err := validateItem(it); err != nil {
			return "", err.WithMetadata("position", fmt.Sprint(i))
		}
		line, _ := domain.CheckedLineTotal(it.Quantity, it.UnitPrice, it.Discount)
		var ok bool
		if lines, ok = domain.AddMinor(lines, line); !ok {
			return "", domain.Validation(domain.CodeInvalidTotals, "item lines exceed the supported amount").
				WithMetadata("position", fmt.Sprint(i))
		}
	}

	t := req.Totals
	switch {
	case t.Subtotal < 0 || t.Shipping < 0 || t.Tax < 0 || t.Discount < 0:
		return "", domain.Validation(domain.CodeInvalidTotals, "totals must not be negative")
	case t.Grand <= 0:
		return "", domain.Validation(domain.CodeInvalidTotals, "grand total must be positive")
	case !t.Balanced():
		return "", domain.Validation(domain.CodeInvalidTotals,
			"grand total must equal subtotal + shipping + tax - discount")
	case t.Subtotal != lines:
		return "", domain.Validation(domain.CodeInvalidTotals, "subtotal does not match the item lines").
			WithMetadata("subtotal", fmt.Sprint(t.Subtotal), "lines", fmt.Sprint(lines))
	}
	return currency, nil
}

func validateItem(it CheckoutItem) *domain.Error {
	switch {
	case it.VendorID == "":
		return domain.Validation(domain.CodeInvalidItem, "item has no vendor")
	case it.ProductID == "":
		return domain.Validation(domain.CodeInvalidItem, "item has no product")
	case it.Quantity <= 0:
		return domain.Validation(domain.CodeInvalidItem, "item quantity must be positive")
	case it.UnitPrice < 0 || it.Discount < 0:
		return domain.Validation(domain.CodeInvalidItem, "item price and discount must not be negative")
	case it.Weight.Valid && it.Weight.Decimal.IsNegative():
		return domain.Validation(domain.CodeInvalidItem, "item weight must not be negative")
	}
	gross, ok := domain.MulMinor(it.Quantity, it.UnitPrice)
	if !ok {
		return domain.Validation(domain.CodeInvalidItem, "item line amount is too large")
	}
	if it.Discount > gross {
		return domain.Validation(domain.CodeInvalidItem, "item discount exceeds the line amount")
	}
	return nil
}

// build groups items by vendor in encounter order and snapshots each
// vendor's commission terms onto its sub-order.
func (s *Splitter) build(ctx context.Context, req CheckoutRequest, currency string) (*domain.Order, error) {
	now := s.rt.clock()
	order := &domain.Order{
		ID:            uuid.NewString(),
		TenantID:      req.TenantID,
		CheckoutKey:   req.CheckoutKey,
		Customer:      req.Customer,
		Currency:      currency,
		Totals:        req.Totals,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.ParentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	index := make(map[string]int)
	for pos, it := range req.Items {
		i, seen := index[it.VendorID]
		if !seen {
			vendor, err := s.resolve(ctx, it.VendorID)
			if err != nil {
				return nil, err
			}
			rate := vendor.CommissionRate(s.platformRate)
			if !domain.ValidRate(rate) {
				return nil, domain.Validation(domain.CodeInvalidRate, "vendor commission rate is outside [0, 1]").
					WithMetadata("vendor_id", it.VendorID, "rate", rate.String())
			}
			i = len(order.SubOrders)
			index[it.VendorID] = i
			order.SubOrders = append(order.SubOrders, domain.SubOrder{
				ID:             uuid.NewString(),
				OrderID:        order.ID,
				Sequence:       i + 1,
				VendorID:       vendor.ID,
				VendorName:     vendor.Name,
				Currency:       currency,
				Status:         domain.SubOrderPending,
				CommissionRate: rate,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}

		so := &order.SubOrders[i]
		item := domain.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			SubOrderID: so.ID,
			VendorID:   it.VendorID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Discount:   it.Discount,
			Weight:     it.Weight,
			Position:   pos,
		}
		so.Totals.Subtotal += item.LineTotal()
		so.Items = append(so.Items, item)
		order.Items = append(order.Items, item)
	}

	for i := range order.SubOrders {
		so := &order.SubOrders[i]
		so.CommissionAmount, so.VendorPayout = s.payouts.Commission(so.Totals.Subtotal, so.CommissionRate)
	}
	return order, nil
}

func (s *Splitter) resolve(ctx context.Context, vendorID string) (ports.Vendor, error) {
	v, err := s.directory.ResolveVendor(ctx, vendorID)
	if errors.Is(err, ports.ErrVendorNotFound) {
		return v, domain.Validation(domain.CodeUnknownVendor, "vendor cannot be resolved").
			WithMetadata("vendor_id", vendorID)
	}
	if err != nil {
		return v, domain.External(domain.CodeVendorDirectory, "vendor directory lookup failed", err).
			WithMetadata("vendor_id", vendorID)
	}
	if v.ID == "" {
		v.ID = vendorID
	}
	return v, nil
}

// applyAllocation spreads shipping by the chosen strategy and tax and
// discount by subtotal, then rebalances every sub-order grand total.
func applyAllocation(order *domain.Order, alloc domain.ShippingAllocation) {
	subtotals := make([]int64, len(order.SubOrders))
	for i, so := range order.SubOrders {
		subtotals[i] = so.Totals.Subtotal
	}
	tax := domain.SplitProportional(order.Totals.Tax, subtotals)
	discount := domain.SplitProportional(order.Totals.Discount, subtotals)

	for i := range order.SubOrders {
		t := &order.SubOrders[i].Totals
		t.Shipping = alloc.Amounts[i]
		t.Tax = tax[i]
		t.Discount = discount[i]
		*t = t.Rebalance()
	}
	order.ShippingStrategy = alloc.Strategy
}
