package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

func TestCheckWithinWindow(t *testing.T) {
	h := newHarness(t)
	order := h.split(t, checkout(""))
	h.clock.Advance(23 * time.Hour)

	st, err := h.engine.Recovery.Check(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, st.Recoverable)
	assert.False(t, st.IsExpired)
	assert.Equal(t, ReasonPayable, st.Reason)
	assert.Equal(t, time.Hour, st.Remaining)
	assert.True(t, st.ExpiresAt.Equal(day.Add(RecoveryWindow)))
}

func TestCheckExpiresLazily(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))
	h.move(t, order.SubOrders[0], domain.SubOrderConfirmed)
	h.clock.Advance(25 * time.Hour)

	st, err := h.engine.Recovery.Check(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, st.Recoverable)
	assert.True(t, st.IsExpired)
	assert.Equal(t, ReasonExpired, st.Reason)

	stored, err := h.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ParentExpired, stored.Status)
	require.NotNil(t, stored.ExpiredAt)
	for _, so := range stored.SubOrders {
		assert.Equal(t, domain.SubOrderCancelled, so.Status)
		assert.Equal(t, ExpiryReason, so.StatusReason)
	}

	again, err := h.engine.Recovery.Check(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, again.IsExpired)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OrdersExpired.WithLabelValues("check")))
}

func TestConcurrentChecksExpireOnce(t *testing.T) {
	h := newHarness(t)
	order := h.split(t, checkout(""))
	h.clock.Advance(RecoveryWindow + time.Minute)

	const workers = 8
	var wg sync.WaitGroup
	statuses := make([]*RecoveryStatus, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i], errs[i] = h.engine.Recovery.Check(context.Background(), order.ID)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.True(t, statuses[i].IsExpired)
		assert.False(t, statuses[i].Recoverable)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OrdersExpired.WithLabelValues("check")))

	expiries := 0
	for _, a := range actions(t, h, order.ID) {
		if a == orderlog.ActionExpired {
			expiries++
		}
	}
	assert.Equal(t, 1, expiries)
}

func TestCheckNotRecoverableReasons(t *testing.T) {
	ctx := context.Background()

	t.Run("paid", func(t *testing.T) {
		h := newHarness(t)
		order := h.split(t, checkout(""))
		_, err := h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentPaid)
		require.NoError(t, err)
		h.clock.Advance(48 * time.Hour)

		st, err := h.engine.Recovery.Check(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, ReasonPaymentSettled, st.Reason)
		assert.False(t, st.IsExpired, "paid orders never expire")
	})

	t.Run("cash on delivery", func(t *testing.T) {
		h := newHarness(t)
		req := checkout("")
		req.PaymentMethod = domain.PaymentCashOnDelivery
		order := h.split(t, req)

		st, err := h.engine.Recovery.Check(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, ReasonNotPrepaid, st.Reason)
		assert.False(t, st.Recoverable)
	})

	t.Run("cancelled", func(t *testing.T) {
		h := newHarness(t)
		order := h.split(t, checkout(""))
		h.move(t, order.SubOrders[0], domain.SubOrderCancelled)
		h.move(t, order.SubOrders[1], domain.SubOrderCancelled)

		st, err := h.engine.Recovery.Check(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, ReasonCancelled, st.Reason)
	})
}

func TestRetryPaymentReusesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))
	h.clock.Advance(2 * time.Hour)

	first, err := h.engine.Recovery.RetryPayment(ctx, order.ID, domain.Customer("cus-1"))
	require.NoError(t, err)
	assert.Equal(t, order.ID, first.OrderID)
	assert.Equal(t, order.Number, first.OrderNumber)
	assert.Equal(t, "ref-1", first.Reference)
	assert.Equal(t, 1, first.Attempt)

	_, err = h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentFailed)
	require.NoError(t, err)

	second, err := h.engine.Recovery.RetryPayment(ctx, order.ID, domain.Customer("cus-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)

	require.Len(t, h.payments.calls, 2)
	for _, call := range h.payments.calls {
		assert.Equal(t, order.Number, call.OrderNumber)
		assert.Equal(t, int64(11000), call.Amount)
		assert.Equal(t, "https://shop.example.com/payments/callback", call.CallbackURL)
	}

	stored, err := h.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ref-2", stored.PaymentReference)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, 2, stored.PaymentAttempts)

	orders, err := h.store.ListOrders(ctx, "t1", 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "a retry never creates a second order")
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.PaymentRetries.WithLabelValues("initiated")))
}

func TestRetryPaymentInitiatorFailureLeavesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))
	h.payments.err = errors.New("gateway unavailable")

	_, err := h.engine.Recovery.RetryPayment(ctx, order.ID, domain.Customer("cus-1"))
	requireCode(t, err, domain.CodePaymentInitiation)
	assert.ErrorIs(t, err, domain.ErrExternal)

	stored, err := h.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PaymentReference)
	assert.Zero(t, stored.PaymentAttempts)
	assert.Equal(t, domain.ParentPending, stored.Status)

	// The same call succeeds once the gateway is back.
	h.payments.err = nil
	_, err = h.engine.Recovery.RetryPayment(ctx, order.ID, domain.Customer("cus-1"))
	require.NoError(t, err)
}

func TestRetryPaymentAfterWindowExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))
	h.clock.Advance(RecoveryWindow + time.Second)

	_, err := h.engine.Recovery.RetryPayment(ctx, order.ID, domain.Customer("cus-1"))
	requireCode(t, err, domain.CodeNotRecoverable)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "true", de.Metadata["is_expired"])
	assert.Empty(t, h.payments.calls)

	stored, err := h.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ParentExpired, stored.Status)
}

func TestExpireByOperator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))

	res, err := h.engine.Recovery.Expire(ctx, order.ID, "customer abandoned", domain.Admin("ops"))
	require.NoError(t, err)
	assert.False(t, res.AlreadyExpired)
	assert.Equal(t, domain.ParentExpired, res.Order.Status)
	assert.Equal(t, "customer abandoned", res.Order.SubOrders[0].StatusReason)

	res, err = h.engine.Recovery.Expire(ctx, order.ID, "", domain.Admin("ops"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyExpired)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OrdersExpired.WithLabelValues("operator")))

	paid := h.split(t, checkout(""))
	_, err = h.engine.Recovery.RecordPaymentOutcome(ctx, paid.ID, domain.PaymentPaid)
	require.NoError(t, err)
	_, err = h.engine.Recovery.Expire(ctx, paid.ID, "", domain.Admin("ops"))
	requireCode(t, err, domain.CodePaymentSettled)
}

func TestRecordPaymentOutcome(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.split(t, checkout(""))

	_, err := h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentPending)
	requireCode(t, err, domain.CodeInvalidPayment)

	got, err := h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	got, err = h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentPaid)
	require.NoError(t, err, "repeating an outcome is a no-op")
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	_, err = h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentFailed)
	requireCode(t, err, domain.CodePaymentSettled)

	got, err = h.engine.Recovery.RecordPaymentOutcome(ctx, order.ID, domain.PaymentCaptured)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCaptured, got.PaymentStatus)

	late := h.split(t, checkout(""))
	h.clock.Advance(RecoveryWindow + time.Hour)
	_, err = h.engine.Recovery.Check(ctx, late.ID)
	require.NoError(t, err)
	_, err = h.engine.Recovery.RecordPaymentOutcome(ctx, late.ID, domain.PaymentPaid)
	requireCode(t, err, domain.CodeOrderTerminal)
}

func TestClassify(t *testing.T) {
	base := domain.Order{
		ID:            "o",
		Status:        domain.ParentSplit,
		PaymentMethod: domain.PaymentWallet,
		PaymentStatus: domain.PaymentFailed,
		CreatedAt:     day,
	}
	tests := []struct {
		name    string
		mutate  func(*domain.Order)
		now     time.Time
		reason  RecoveryReason
		expired bool
	}{
		{"failed payment inside window", func(*domain.Order) {}, day.Add(time.Hour), ReasonPayable, false},
		{"exactly at the boundary", func(*domain.Order) {}, day.Add(RecoveryWindow), ReasonPayable, false},
		{"past the boundary", func(*domain.Order) {}, day.Add(RecoveryWindow + time.Nanosecond), ReasonExpired, true},
		{"completed", func(o *domain.Order) { o.Status = domain.ParentCompleted }, day, ReasonCompleted, false},
		{"captured", func(o *domain.Order) { o.PaymentStatus = domain.PaymentCaptured }, day, ReasonPaymentSettled, false},
		{"already expired", func(o *domain.Order) { o.Status = domain.ParentExpired }, day, ReasonExpired, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			st := classify(&o, tt.now)
			assert.Equal(t, tt.reason, st.Reason)
			assert.Equal(t, tt.expired, st.IsExpired)
			assert.Equal(t, tt.reason == ReasonPayable, st.Recoverable)
		})
	}
}
