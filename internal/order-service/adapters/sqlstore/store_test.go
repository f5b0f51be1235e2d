package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

var day = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleOrder is a two-vendor checkout: 7000 + 3000 with 1000 shipping.
func sampleOrder(id, tenant, key string, at time.Time) *domain.Order {
	so := func(n int, vendor string, subtotal, shipping int64, rate string, commission int64) domain.SubOrder {
		return domain.SubOrder{
			ID:               fmt.Sprintf("%s-so%d", id, n),
			OrderID:          id,
			Sequence:         n,
			VendorID:         vendor,
			VendorName:       "Vendor " + vendor,
			Currency:         "NGN",
			Status:           domain.SubOrderPending,
			Totals:           domain.Totals{Subtotal: subtotal, Shipping: shipping, Grand: subtotal + shipping},
			CommissionRate:   decimal.RequireFromString(rate),
			CommissionAmount: commission,
			VendorPayout:     subtotal - commission,
			CreatedAt:        at,
			UpdatedAt:        at,
		}
	}
	o := &domain.Order{
		ID:          id,
		TenantID:    tenant,
		CheckoutKey: key,
		Customer: domain.CustomerSnapshot{
			CustomerID: "cus-1",
			Name:       "Ada Obi",
			Email:      "ada@example.com",
			ShippingAddress: domain.Address{
				Line1:   "12 Marina Rd",
				City:    "Lagos",
				Country: "NG",
			},
		},
		Currency:         "NGN",
		Totals:           domain.Totals{Subtotal: 10000, Shipping: 1000, Grand: 11000},
		PaymentMethod:    domain.PaymentCard,
		PaymentStatus:    domain.PaymentPending,
		Status:           domain.ParentSplit,
		ShippingStrategy: domain.StrategyProportional,
		SubOrders: []domain.SubOrder{
			so(1, "v1", 7000, 700, "0.10", 700),
			so(2, "v2", 3000, 300, "0.15", 450),
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	o.Items = []domain.OrderItem{
		{ID: id + "-i1", SubOrderID: o.SubOrders[0].ID, VendorID: "v1", ProductID: "p1", Name: "Kettle",
			Quantity: 2, UnitPrice: 3500, Weight: decimal.NewNullDecimal(decimal.RequireFromString("1.5")), Position: 0},
		{ID: id + "-i2", SubOrderID: o.SubOrders[1].ID, VendorID: "v2", ProductID: "p2", Name: "Mug",
			Quantity: 1, UnitPrice: 3000, Position: 1},
	}
	return o
}

func create(t *testing.T, s *Store, o *domain.Order) *domain.Order {
	t.Helper()
	stored, created, err := s.CreateOrder(context.Background(), o)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

func TestCreateOrderRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	create(t, s, sampleOrder("ord-1", "t1", "chk-1", day))

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-20261016-0001", got.Number)
	assert.Equal(t, "chk-1", got.CheckoutKey)
	assert.Equal(t, "Ada Obi", got.Customer.Name)
	assert.Equal(t, "Lagos", got.Customer.ShippingAddress.City)
	assert.Equal(t, int64(11000), got.Totals.Grand)
	assert.True(t, got.CreatedAt.Equal(day))
	assert.Nil(t, got.ExpiredAt)

	require.Len(t, got.SubOrders, 2)
	first := got.SubOrders[0]
	assert.Equal(t, "ORD-20261016-0001-V01", first.Number)
	assert.Equal(t, "ORD-20261016-0001-V02", got.SubOrders[1].Number)
	assert.True(t, first.CommissionRate.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, int64(6300), first.VendorPayout)
	require.Len(t, first.Items, 1)
	assert.True(t, first.Items[0].Weight.Valid)
	assert.True(t, first.Items[0].Weight.Decimal.Equal(decimal.RequireFromString("1.5")))
	assert.False(t, got.SubOrders[1].Items[0].Weight.Valid)
	assert.Len(t, got.Items, 2)
}

func TestOrderNumbersPerTenantAndDay(t *testing.T) {
	s := openStore(t)

	a := create(t, s, sampleOrder("a", "t1", "", day))
	b := create(t, s, sampleOrder("b", "t1", "", day.Add(time.Hour)))
	c := create(t, s, sampleOrder("c", "t2", "", day))
	d := create(t, s, sampleOrder("d", "t1", "", day.Add(24*time.Hour)))

	assert.Equal(t, "ORD-20261016-0001", a.Number)
	assert.Equal(t, "ORD-20261016-0002", b.Number)
	assert.Equal(t, "ORD-20261016-0001", c.Number)
	assert.Equal(t, "ORD-20261017-0001", d.Number)
}

func TestCreateOrderReplaysCheckoutKey(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first := create(t, s, sampleOrder("ord-1", "t1", "chk-1", day))

	again, created, err := s.CreateOrder(ctx, sampleOrder("ord-2", "t1", "chk-1", day))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Number, again.Number)

	// Same key under another tenant is a different checkout.
	_, created, err = s.CreateOrder(ctx, sampleOrder("ord-3", "t2", "chk-1", day))
	require.NoError(t, err)
	assert.True(t, created)

	orders, err := s.ListOrders(ctx, "t1", 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetSubOrder(ctx, "nope")
	assert.ErrorIs(t, err, &domain.Error{Code: domain.CodeSubOrderNotFound})
	_, err = s.GetRefund(ctx, "nope")
	assert.ErrorIs(t, err, &domain.Error{Code: domain.CodeRefundNotFound})
}

func TestTransitionSubOrderIsConditional(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	at := day.Add(time.Minute)
	tr := ports.SubOrderTransition{SubOrderID: "ord-1-so1", From: domain.SubOrderPending, To: domain.SubOrderConfirmed, At: at}

	ok, err := s.TransitionSubOrder(ctx, tr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionSubOrder(ctx, tr)
	require.NoError(t, err)
	assert.False(t, ok, "second writer must lose")

	so, err := s.GetSubOrder(ctx, "ord-1-so1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubOrderConfirmed, so.Status)
	require.NotNil(t, so.ConfirmedAt)
	assert.True(t, so.ConfirmedAt.Equal(at))

	statuses, err := s.ListSubOrderStatuses(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.SubOrderStatus{domain.SubOrderConfirmed, domain.SubOrderPending}, statuses)
}

func TestExpireOrderOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	at := day.Add(25 * time.Hour)
	ok, err := s.ExpireOrder(ctx, "ord-1", "payment window elapsed", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExpireOrder(ctx, "ord-1", "payment window elapsed", at)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ParentExpired, got.Status)
	require.NotNil(t, got.ExpiredAt)
	for _, so := range got.SubOrders {
		assert.Equal(t, domain.SubOrderCancelled, so.Status)
		assert.Equal(t, "payment window elapsed", so.StatusReason)
	}

	ok, err = s.SetDerivedStatus(ctx, "ord-1", domain.ParentCancelled, at)
	require.NoError(t, err)
	assert.False(t, ok, "EXPIRED is never overwritten")
}

func TestExpireOrderSkipsPaid(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	ok, err := s.SetPaymentStatus(ctx, "ord-1", domain.PaymentPaid, day)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ExpireOrder(ctx, "ord-1", "late", day.Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	statuses, err := s.ListSubOrderStatuses(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.SubOrderStatus{domain.SubOrderPending, domain.SubOrderPending}, statuses)
}

func TestSaveShippingAllocationRebalances(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	err := s.SaveShippingAllocation(ctx, ports.ShippingUpdate{
		OrderID:  "ord-1",
		Strategy: domain.StrategyWeight,
		Total:    2000,
		Amounts:  map[string]int64{"ord-1-so1": 1500, "ord-1-so2": 500},
		At:       day,
	})
	require.NoError(t, err)

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyWeight, got.ShippingStrategy)
	assert.Equal(t, int64(12000), got.Totals.Grand)
	assert.True(t, got.Totals.Balanced())
	assert.Equal(t, int64(8500), got.SubOrders[0].Totals.Grand)
	assert.Equal(t, int64(3500), got.SubOrders[1].Totals.Grand)
}

func TestPaymentAttempts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	ok, err := s.SetPaymentStatus(ctx, "ord-1", domain.PaymentFailed, day)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.RecordPaymentAttempt(ctx, "ord-1", "ref-2", day.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-2", got.PaymentReference)
	assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
	assert.Equal(t, 1, got.PaymentAttempts)

	_, err = s.SetPaymentStatus(ctx, "ord-1", domain.PaymentPaid, day)
	require.NoError(t, err)
	ok, err = s.RecordPaymentAttempt(ctx, "ord-1", "ref-3", day)
	require.NoError(t, err)
	assert.False(t, ok, "a paid order takes no new attempt")
}

func TestListExpirable(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	create(t, s, sampleOrder("old", "t1", "", day))
	cod := sampleOrder("cod", "t1", "", day)
	cod.PaymentMethod = domain.PaymentCashOnDelivery
	create(t, s, cod)
	create(t, s, sampleOrder("fresh", "t1", "", day.Add(20*time.Hour)))
	create(t, s, sampleOrder("other", "t2", "", day))

	ids, err := s.ListExpirable(ctx, "t1", day.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids)
}

func TestPayoutSettlement(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	path := []domain.SubOrderStatus{
		domain.SubOrderPending, domain.SubOrderConfirmed, domain.SubOrderProcessing,
		domain.SubOrderShipped, domain.SubOrderDelivered,
	}
	for i := 1; i < len(path); i++ {
		ok, err := s.TransitionSubOrder(ctx, ports.SubOrderTransition{
			SubOrderID: "ord-1-so1", From: path[i-1], To: path[i], At: day,
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	payable, err := s.ListPayableSubOrders(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, payable, 1)
	assert.Equal(t, "ord-1-so1", payable[0].ID)

	// ord-1-so2 belongs to v2 and is not delivered; it is ignored.
	n, err := s.MarkPayoutsSettled(ctx, "v1", []string{"ord-1-so1", "ord-1-so2"}, day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.MarkPayoutsSettled(ctx, "v1", []string{"ord-1-so1"}, day)
	require.NoError(t, err)
	assert.Zero(t, n)

	payable, err = s.ListPayableSubOrders(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, payable)
}

func refundFor(id, orderID string, toCustomer bool) *domain.RefundIntent {
	return &domain.RefundIntent{
		ID:                id,
		TenantID:          "t1",
		OrderID:           orderID,
		SubOrderID:        orderID + "-so2",
		Type:              domain.RefundVendorSpecific,
		Currency:          "NGN",
		RequestedAmount:   3300,
		Reason:            domain.ReasonDamagedItem,
		Status:            domain.RefundPending,
		VisibleToCustomer: toCustomer,
		VisibleToAdmin:    true,
		CustomerID:        "cus-1",
		RequestedBy:       "CUSTOMER:cus-1",
		CreatedAt:         day,
		UpdatedAt:         day,
	}
}

func TestRefundLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	create(t, s, sampleOrder("ord-1", "t1", "", day))

	r1 := refundFor("rf-1", "ord-1", true)
	require.NoError(t, s.CreateRefund(ctx, r1))
	assert.Equal(t, "RFD-20261016-0001", r1.Number)

	r2 := refundFor("rf-2", "ord-1", false)
	r2.SubOrderID = ""
	r2.Type = domain.RefundFull
	require.NoError(t, s.CreateRefund(ctx, r2))
	assert.Equal(t, "RFD-20261016-0002", r2.Number)

	amount := int64(3000)
	ok, err := s.ReviewRefund(ctx, ports.RefundReview{
		RefundID: "rf-1", Status: domain.RefundApproved, ApprovedAmount: &amount,
		ReviewedBy: "ADMIN:ops", Note: "photo attached", At: day.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ReviewRefund(ctx, ports.RefundReview{RefundID: "rf-1", Status: domain.RefundRejected, At: day})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CancelRefund(ctx, "rf-1", day)
	require.NoError(t, err)
	assert.False(t, ok, "reviewed intents cannot be cancelled")

	got, err := s.GetRefund(ctx, "rf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RefundApproved, got.Status)
	require.NotNil(t, got.ApprovedAmount)
	assert.Equal(t, int64(3000), *got.ApprovedAmount)
	assert.Equal(t, "ADMIN:ops", got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
	assert.Nil(t, got.CancelledAt)

	ok, err = s.CancelRefund(ctx, "rf-2", day)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = s.GetRefund(ctx, "rf-2")
	require.NoError(t, err)
	assert.Empty(t, got.SubOrderID)
	assert.Nil(t, got.ApprovedAmount)
	assert.Equal(t, domain.RefundCancelled, got.Status)

	customer, err := s.ListRefunds(ctx, ports.RefundFilter{TenantID: "t1", CustomerID: "cus-1", Audience: domain.AudienceCustomer})
	require.NoError(t, err)
	require.Len(t, customer, 1)
	assert.Equal(t, "rf-1", customer[0].ID)

	admin, err := s.ListRefunds(ctx, ports.RefundFilter{OrderID: "ord-1", Audience: domain.AudienceAdmin})
	require.NoError(t, err)
	assert.Len(t, admin, 2)
}

func TestActivityTrail(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, &orderlog.Entry{
		OrderID: "ord-1", Action: orderlog.ActionSplit, Actor: "SYSTEM:system",
		Detail: `{"sub_orders":2}`, CreatedAt: day,
	}))
	require.NoError(t, s.Append(ctx, &orderlog.Entry{
		OrderID: "ord-1", Action: orderlog.ActionExpired, Actor: "SYSTEM:system",
		Detail: "{}", TraceID: "abc", SpanID: "def", CreatedAt: day.Add(time.Hour),
	}))

	entries, err := s.List(ctx, "ord-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, orderlog.ActionSplit, entries[0].Action)
	assert.Equal(t, "abc", entries[1].TraceID)
	assert.True(t, entries[1].CreatedAt.Equal(day.Add(time.Hour)))

	none, err := s.List(ctx, "ord-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
