package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// PayoutStatus classifies an aggregated vendor payout.
type PayoutStatus string

const (
	PayoutEligible PayoutStatus = "ELIGIBLE"
	PayoutPending  PayoutStatus = "PENDING"
)

// PayoutSummary aggregates a vendor's unsettled payouts in one currency.
type PayoutSummary struct {
	VendorID    string
	Currency    string
	SubOrderIDs []string
	Total       int64
	Threshold   int64
	Status      PayoutStatus
}

// PayoutCalculator computes commission at split time and reports payout
// eligibility afterwards. It never moves money.
type PayoutCalculator struct {
	store   ports.OrderStore
	minimum int64
	rt      *runtime
}

// Commission returns round(subtotal × rate) and subtotal minus that amount.
func (p *PayoutCalculator) Commission(subtotal int64, rate decimal.Decimal) (commission, payout int64) {
	return domain.Commission(subtotal, rate)
}

// Eligibility sums vendorPayout over the vendor's delivered, unsettled
// sub-orders, one summary per currency in order of first delivery. A sum at
// or above the minimum threshold is ELIGIBLE, anything less is PENDING.
func (p *PayoutCalculator) Eligibility(ctx context.Context, vendorID string) (out []PayoutSummary, err error) {
	ctx, span := p.rt.tracer.Start(ctx, "PayoutCalculator.Eligibility")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("vendor.id", vendorID))

	if vendorID == "" {
		return nil, domain.Validation(domain.CodePayoutInvalid, "vendor id is required")
	}
	subs, err := p.store.ListPayableSubOrders(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("payout eligibility: %w", err)
	}

	byCurrency := make(map[string]int)
	for _, so := range subs {
		i, ok := byCurrency[so.Currency]
		if !ok {
			i = len(out)
			byCurrency[so.Currency] = i
			out = append(out, PayoutSummary{VendorID: vendorID, Currency: so.Currency, Threshold: p.minimum})
		}
		out[i].Total += so.VendorPayout
		out[i].SubOrderIDs = append(out[i].SubOrderIDs, so.ID)
	}
	for i := range out {
		out[i].Status = PayoutPending
		if out[i].Total >= p.minimum {
			out[i].Status = PayoutEligible
		}
	}
	return out, nil
}

// MarkSettled records that the external settlement process paid out the
// given delivered sub-orders. Ids that are not delivered, belong to another
// vendor or were already settled are ignored; the count of newly settled
// sub-orders is returned.
func (p *PayoutCalculator) MarkSettled(ctx context.Context, vendorID string, subOrderIDs []string, actor domain.Actor) (n int64, err error) {
	ctx, span := p.rt.tracer.Start(ctx, "PayoutCalculator.MarkSettled")
	defer func() { endSpan(span, err) }()

	if vendorID == "" || len(subOrderIDs) == 0 {
		return 0, domain.Validation(domain.CodePayoutInvalid, "vendor id and sub-order ids are required")
	}

	payable, err := p.store.ListPayableSubOrders(ctx, vendorID)
	if err != nil {
		return 0, fmt.Errorf("mark payouts settled: %w", err)
	}

	n, err = p.store.MarkPayoutsSettled(ctx, vendorID, subOrderIDs, p.rt.clock())
	if err != nil {
		return 0, fmt.Errorf("mark payouts settled: %w", err)
	}

	for _, so := range payable {
		if slices.Contains(subOrderIDs, so.ID) {
			p.rt.activity.Record(ctx, so.OrderID, orderlog.ActionPayoutSettled, actor.String(), map[string]any{
				"sub_order_id":  so.ID,
				"vendor_payout": so.VendorPayout,
			})
		}
	}
	p.rt.metrics.PayoutsSettled.Add(float64(n))
	p.rt.logger.InfoContext(ctx, "payouts settled", "vendor_id", vendorID, "count", n)
	return n, nil
}
