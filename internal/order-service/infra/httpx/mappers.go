package httpx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/app"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

func toCheckout(tenantID, key string, req CheckoutRequest) (app.CheckoutRequest, error) {
	items := make([]app.CheckoutItem, 0, len(req.Items))
	for i, it := range req.Items {
		item := app.CheckoutItem{
			VendorID:  it.VendorID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		}
		if it.Weight != nil && strings.TrimSpace(*it.Weight) != "" {
			w, err := decimal.NewFromString(strings.TrimSpace(*it.Weight))
			if err != nil {
				return app.CheckoutRequest{}, domain.Validation(domain.CodeInvalidItem,
					fmt.Sprintf("items[%d].weight is not a decimal", i)).WithMetadata("weight", *it.Weight)
			}
			item.Weight = decimal.NewNullDecimal(w)
		}
		items = append(items, item)
	}

	return app.CheckoutRequest{
		TenantID:    tenantID,
		CheckoutKey: key,
		Customer: domain.CustomerSnapshot{
			CustomerID: req.Customer.ID,
			Name:       req.Customer.Name,
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			ShippingAddress: domain.Address{
				Line1:      req.Customer.ShippingAddress.Line1,
				Line2:      req.Customer.ShippingAddress.Line2,
				City:       req.Customer.ShippingAddress.City,
				State:      req.Customer.ShippingAddress.State,
				PostalCode: req.Customer.ShippingAddress.PostalCode,
				Country:    req.Customer.ShippingAddress.Country,
			},
		},
		Currency:      req.Currency,
		PaymentMethod: domain.PaymentMethod(strings.ToUpper(req.PaymentMethod)),
		Items:         items,
		Totals: domain.Totals{
			Subtotal: req.Totals.Subtotal,
			Shipping: req.Totals.Shipping,
			Tax:      req.Totals.Tax,
			Discount: req.Totals.Discount,
			Grand:    req.Totals.Grand,
		},
	}, nil
}

func mapTotals(t domain.Totals) TotalsDTO {
	return TotalsDTO{
		Subtotal: t.Subtotal,
		Shipping: t.Shipping,
		Tax:      t.Tax,
		Discount: t.Discount,
		Grand:    t.Grand,
	}
}

func mapItems(items []domain.OrderItem) []OrderItemResponse {
	if len(items) == 0 {
		return nil
	}
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			ID:         it.ID,
			SubOrderID: it.SubOrderID,
			VendorID:   it.VendorID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Discount:   it.Discount,
			LineTotal:  it.LineTotal(),
		}
		if it.Weight.Valid {
			w := it.Weight.Decimal.String()
			out[i].Weight = &w
		}
	}
	return out
}

func mapSubOrder(so domain.SubOrder) SubOrderResponse {
	return SubOrderResponse{
		ID:               so.ID,
		Number:           so.Number,
		VendorID:         so.VendorID,
		VendorName:       so.VendorName,
		Status:           string(so.Status),
		StatusReason:     so.StatusReason,
		Currency:         so.Currency,
		Totals:           mapTotals(so.Totals),
		CommissionRate:   so.CommissionRate.String(),
		CommissionAmount: so.CommissionAmount,
		VendorPayout:     so.VendorPayout,
		Items:            mapItems(so.Items),
		ConfirmedAt:      so.ConfirmedAt,
		ShippedAt:        so.ShippedAt,
		DeliveredAt:      so.DeliveredAt,
		CancelledAt:      so.CancelledAt,
		PayoutSettledAt:  so.PayoutSettledAt,
		UpdatedAt:        so.UpdatedAt,
	}
}

func mapOrder(o *domain.Order) OrderResponse {
	subs := make([]SubOrderResponse, len(o.SubOrders))
	for i, so := range o.SubOrders {
		subs[i] = mapSubOrder(so)
	}
	c := o.Customer
	return OrderResponse{
		ID:           o.ID,
		TenantID:     o.TenantID,
		Number:       o.Number,
		Status:       string(o.Status),
		StatusReason: o.StatusReason,
		Customer: CustomerDTO{
			ID:    c.CustomerID,
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
			ShippingAddress: AddressDTO{
				Line1:      c.ShippingAddress.Line1,
				Line2:      c.ShippingAddress.Line2,
				City:       c.ShippingAddress.City,
				State:      c.ShippingAddress.State,
				PostalCode: c.ShippingAddress.PostalCode,
				Country:    c.ShippingAddress.Country,
			},
		},
		Currency:         o.Currency,
		Totals:           mapTotals(o.Totals),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		PaymentAttempts:  o.PaymentAttempts,
		ShippingStrategy: string(o.ShippingStrategy),
		Items:            mapItems(o.Items),
		SubOrders:        subs,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		ExpiredAt:        o.ExpiredAt,
	}
}

func mapRefund(r *domain.RefundIntent) RefundResponse {
	return RefundResponse{
		ID:                r.ID,
		Number:            r.Number,
		OrderID:           r.OrderID,
		SubOrderID:        r.SubOrderID,
		Type:              string(r.Type),
		Currency:          r.Currency,
		RequestedAmount:   r.RequestedAmount,
		ApprovedAmount:    r.ApprovedAmount,
		Reason:            string(r.Reason),
		Note:              r.Note,
		Status:            string(r.Status),
		VisibleToCustomer: r.VisibleToCustomer,
		VisibleToAdmin:    r.VisibleToAdmin,
		CustomerID:        r.CustomerID,
		CustomerName:      r.CustomerName,
		RequestedBy:       r.RequestedBy,
		ReviewedBy:        r.ReviewedBy,
		ReviewNote:        r.ReviewNote,
		CreatedAt:         r.CreatedAt,
		ReviewedAt:        r.ReviewedAt,
		CancelledAt:       r.CancelledAt,
	}
}

func mapRecovery(st *app.RecoveryStatus) RecoveryResponse {
	return RecoveryResponse{
		OrderID:          st.OrderID,
		Recoverable:      st.Recoverable,
		IsExpired:        st.IsExpired,
		Reason:           string(st.Reason),
		ExpiresAt:        st.ExpiresAt,
		RemainingSeconds: int64(st.Remaining.Seconds()),
	}
}

func mapPayout(p app.PayoutSummary) PayoutResponse {
	return PayoutResponse{
		VendorID:    p.VendorID,
		Currency:    p.Currency,
		SubOrderIDs: p.SubOrderIDs,
		Total:       p.Total,
		Threshold:   p.Threshold,
		Status:      string(p.Status),
	}
}

func mapActivity(e orderlog.Entry) ActivityResponse {
	return ActivityResponse{
		Action:    string(e.Action),
		Actor:     e.Actor,
		Detail:    e.Detail,
		TraceID:   e.TraceID,
		CreatedAt: e.CreatedAt,
	}
}
