package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// RecoveryWindow is how long an unpaid order stays payable.
const RecoveryWindow = 24 * time.Hour

// ExpiryReason is stamped on every sub-order cancelled by an expiry.
const ExpiryReason = "payment window elapsed"

// RecoveryReason explains a recoverability classification.
type RecoveryReason string

const (
	ReasonPayable        RecoveryReason = "PAYABLE"
	ReasonCancelled      RecoveryReason = "ORDER_CANCELLED"
	ReasonExpired        RecoveryReason = "ORDER_EXPIRED"
	ReasonCompleted      RecoveryReason = "ORDER_COMPLETED"
	ReasonPaymentSettled RecoveryReason = "PAYMENT_SETTLED"
	ReasonNotPrepaid     RecoveryReason = "NOT_PREPAID"
)

// RecoveryStatus is the answer of a recoverability check. IsExpired is
// terminal: callers must stop retrying.
type RecoveryStatus struct {
	OrderID     string
	Recoverable bool
	IsExpired   bool
	Reason      RecoveryReason
	ExpiresAt   time.Time
	Remaining   time.Duration
}

// PaymentRetry is a new payment initiation for an existing order.
type PaymentRetry struct {
	OrderID          string
	OrderNumber      string
	Reference        string
	AuthorizationURL string
	Attempt          int
}

// ExpiryResult is the order after an explicit expiry.
type ExpiryResult struct {
	Order          *domain.Order
	AlreadyExpired bool
}

// RecoveryManager retries payment on stalled orders and expires the ones
// that stayed unpaid past RecoveryWindow. There is no timer: expiry happens
// when an order is checked or a tenant's order list is loaded.
type RecoveryManager struct {
	store       ports.OrderStore
	payments    ports.PaymentInitiator
	callbackURL string
	rt          *runtime
}

// Check classifies the order and expires it when the window has elapsed.
func (m *RecoveryManager) Check(ctx context.Context, orderID string) (st *RecoveryStatus, err error) {
	ctx, span := m.rt.tracer.Start(ctx, "RecoveryManager.Check")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID))

	st, _, err = m.check(ctx, orderID)
	return st, err
}

func (m *RecoveryManager) check(ctx context.Context, orderID string) (*RecoveryStatus, *domain.Order, error) {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	now := m.rt.clock()
	st := classify(order, now)
	if st.Recoverable || st.Reason != ReasonExpired || order.Status == domain.ParentExpired {
		return st, order, nil
	}

	// The window elapsed on an open, unpaid order: expire it now.
	expired, err := m.expire(ctx, order, ExpiryReason, domain.System, "check")
	if err != nil {
		return nil, nil, err
	}
	if expired {
		return st, order, nil
	}

	// Lost the race: something else expired it or it got paid meanwhile.
	order, err = m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	st = classify(order, now)
	st.Recoverable = false
	return st, order, nil
}

// classify applies the recoverability rules without side effects. An open
// order past its window is reported as expired even before it is written.
func classify(order *domain.Order, now time.Time) *RecoveryStatus {
	st := &RecoveryStatus{
		OrderID:   order.ID,
		ExpiresAt: order.ExpiresAt(RecoveryWindow),
	}
	switch {
	case order.Status == domain.ParentExpired:
		st.Reason, st.IsExpired = ReasonExpired, true
	case order.Status == domain.ParentCancelled:
		st.Reason = ReasonCancelled
	case order.Status == domain.ParentCompleted:
		st.Reason = ReasonCompleted
	case order.PaymentStatus.Settled():
		st.Reason = ReasonPaymentSettled
	case !order.PaymentMethod.Prepaid():
		st.Reason = ReasonNotPrepaid
	case now.After(st.ExpiresAt):
		st.Reason, st.IsExpired = ReasonExpired, true
	default:
		st.Recoverable = true
		st.Reason = ReasonPayable
		st.Remaining = st.ExpiresAt.Sub(now)
	}
	return st
}

// expire writes the cascade and reports whether this call performed it.
func (m *RecoveryManager) expire(ctx context.Context, order *domain.Order, reason string, actor domain.Actor, trigger string) (bool, error) {
	ok, err := m.store.ExpireOrder(ctx, order.ID, reason, m.rt.clock())
	if err != nil {
		return false, fmt.Errorf("expire order %s: %w", order.ID, err)
	}
	if !ok {
		return false, nil
	}
	m.rt.metrics.OrdersExpired.WithLabelValues(trigger).Inc()
	m.rt.activity.Record(ctx, order.ID, orderlog.ActionExpired, actor.String(), map[string]any{
		"reason":  reason,
		"trigger": trigger,
	})
	m.rt.logger.InfoContext(ctx, "order expired",
		"order_id", order.ID, "order_number", order.Number, "tenant_id", order.TenantID, "trigger", trigger)
	return true, nil
}

// RetryPayment asks the payment initiator for a new initiation of the same
// order number. The order's payment fields change only after the initiator
// answers; a failed initiation leaves the order as it was.
func (m *RecoveryManager) RetryPayment(ctx context.Context, orderID string, actor domain.Actor) (res *PaymentRetry, err error) {
	ctx, span := m.rt.tracer.Start(ctx, "RecoveryManager.RetryPayment")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID))

	st, order, err := m.check(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !st.Recoverable {
		m.rt.metrics.PaymentRetries.WithLabelValues("not_recoverable").Inc()
		return nil, notRecoverable(st)
	}

	init, err := m.payments.Initiate(ctx, ports.PaymentRequest{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Amount:      order.Totals.Grand,
		Currency:    order.Currency,
		Customer:    order.Customer,
		CallbackURL: m.callbackURL,
	})
	if err != nil {
		m.rt.metrics.PaymentRetries.WithLabelValues("initiator_failed").Inc()
		m.rt.logger.WarnContext(ctx, "payment initiation failed", "order_id", order.ID, "error", err)
		return nil, domain.External(domain.CodePaymentInitiation, "payment initiation failed", err).
			WithMetadata("order_id", order.ID)
	}

	ok, err := m.store.RecordPaymentAttempt(ctx, order.ID, init.Reference, m.rt.clock())
	if err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}
	if !ok {
		m.rt.metrics.PaymentRetries.WithLabelValues("not_recoverable").Inc()
		st, _, err := m.check(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, notRecoverable(st)
	}

	m.rt.metrics.PaymentRetries.WithLabelValues("initiated").Inc()
	m.rt.activity.Record(ctx, order.ID, orderlog.ActionPaymentRetried, actor.String(), map[string]any{
		"reference": init.Reference,
		"attempt":   order.PaymentAttempts + 1,
	})
	m.rt.logger.InfoContext(ctx, "payment retried",
		"order_id", order.ID, "order_number", order.Number, "reference", init.Reference)

	return &PaymentRetry{
		OrderID:          order.ID,
		OrderNumber:      order.Number,
		Reference:        init.Reference,
		AuthorizationURL: init.AuthorizationURL,
		Attempt:          order.PaymentAttempts + 1,
	}, nil
}

func notRecoverable(st *RecoveryStatus) error {
	return domain.Conflict(domain.CodeNotRecoverable, "order payment cannot be retried").
		WithMetadata("order_id", st.OrderID, "reason", string(st.Reason), "is_expired", fmt.Sprint(st.IsExpired))
}

// Expire cancels every open sub-order and marks the order EXPIRED. Expiring
// an already expired order returns it unchanged.
func (m *RecoveryManager) Expire(ctx context.Context, orderID, reason string, actor domain.Actor) (res *ExpiryResult, err error) {
	ctx, span := m.rt.tracer.Start(ctx, "RecoveryManager.Expire")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID))

	if reason == "" {
		reason = ExpiryReason
	}
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.ParentExpired {
		return &ExpiryResult{Order: order, AlreadyExpired: true}, nil
	}
	if err := expirable(order); err != nil {
		return nil, err
	}

	done, err := m.expire(ctx, order, reason, actor, "operator")
	if err != nil {
		return nil, err
	}
	current, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !done {
		if current.Status == domain.ParentExpired {
			return &ExpiryResult{Order: current, AlreadyExpired: true}, nil
		}
		return nil, expirable(current)
	}
	return &ExpiryResult{Order: current}, nil
}

func expirable(order *domain.Order) error {
	if order.Status.Terminal() {
		return domain.Conflict(domain.CodeOrderTerminal, "order is no longer open").
			WithMetadata("order_id", order.ID, "status", string(order.Status))
	}
	if order.PaymentStatus.Settled() {
		return domain.Conflict(domain.CodePaymentSettled, "order payment is already settled").
			WithMetadata("order_id", order.ID)
	}
	return nil
}

// Sweep expires every open, unpaid, prepaid order of the tenant created more
// than RecoveryWindow ago and returns how many this call expired.
func (m *RecoveryManager) Sweep(ctx context.Context, tenantID string) (n int, err error) {
	ctx, span := m.rt.tracer.Start(ctx, "RecoveryManager.Sweep")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	ids, err := m.store.ListExpirable(ctx, tenantID, m.rt.clock().Add(-RecoveryWindow))
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: %w", err)
	}

	var errs []error
	for _, id := range ids {
		done, err := m.expire(ctx, &domain.Order{ID: id, TenantID: tenantID}, ExpiryReason, domain.System, "sweep")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if done {
			n++
		}
	}
	if n > 0 {
		m.rt.logger.InfoContext(ctx, "expiry sweep finished", "tenant_id", tenantID, "expired", n)
	}
	return n, errors.Join(errs...)
}

// RecordPaymentOutcome stores what the settlement callback reported. Orders
// that expired or were cancelled refuse late outcomes.
func (m *RecoveryManager) RecordPaymentOutcome(ctx context.Context, orderID string, status domain.PaymentStatus) (order *domain.Order, err error) {
	ctx, span := m.rt.tracer.Start(ctx, "RecoveryManager.RecordPaymentOutcome")
	defer func() { endSpan(span, err) }()

	if status != domain.PaymentPaid && status != domain.PaymentCaptured && status != domain.PaymentFailed {
		return nil, domain.Validation(domain.CodeInvalidPayment, "payment outcome must be PAID, CAPTURED or FAILED")
	}
	order, err = m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}
	if order.Status == domain.ParentExpired || order.Status == domain.ParentCancelled {
		return nil, domain.Conflict(domain.CodeOrderTerminal, "order no longer accepts payment outcomes").
			WithMetadata("order_id", order.ID, "status", string(order.Status))
	}
	// Money taken is never untaken; only PAID -> CAPTURED moves forward.
	if order.PaymentStatus.Settled() && !(order.PaymentStatus == domain.PaymentPaid && status == domain.PaymentCaptured) {
		return nil, domain.Conflict(domain.CodePaymentSettled, "order payment is already settled").
			WithMetadata("order_id", order.ID, "payment_status", string(order.PaymentStatus))
	}

	ok, err := m.store.SetPaymentStatus(ctx, order.ID, status, m.rt.clock())
	if err != nil {
		return nil, fmt.Errorf("record payment outcome: %w", err)
	}
	current, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok && current.PaymentStatus != status {
		return nil, domain.Conflict(domain.CodeOrderTerminal, "order no longer accepts payment outcomes").
			WithMetadata("order_id", order.ID, "status", string(current.Status))
	}
	if ok {
		m.rt.activity.Record(ctx, order.ID, orderlog.ActionPaymentOutcome, domain.System.String(), map[string]any{
			"from": order.PaymentStatus,
			"to":   status,
		})
		m.rt.logger.InfoContext(ctx, "payment outcome recorded",
			"order_id", order.ID, "payment_status", string(status))
	}
	return current, nil
}
