package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// RefundRequest asks for a refund against an order or one of its sub-orders.
type RefundRequest struct {
	OrderID    string
	SubOrderID string
	Type       domain.RefundType
	// Amount may be zero for FULL refunds, meaning the whole scope.
	Amount            int64
	Reason            domain.RefundReason
	Note              string
	VisibleToCustomer bool
	VisibleToAdmin    bool
	RequestedBy       domain.Actor
}

// ReviewRequest decides a pending refund intent.
type ReviewRequest struct {
	RefundID string
	Decision domain.RefundDecision
	// ApprovedAmount defaults to the requested amount on approval and must
	// be empty on rejection.
	ApprovedAmount *int64
	Reviewer       domain.Actor
	Note           string
}

// RefundOutcome is a refund intent after a review or cancellation.
// AlreadyHandled is true when a concurrent call reached the same status first.
type RefundOutcome struct {
	Refund         *domain.RefundIntent
	AlreadyHandled bool
}

// RefundTracker records refund decisions. It never touches orders, sub-orders
// or balances.
type RefundTracker struct {
	store ports.Store
	rt    *runtime
}

func (t *RefundTracker) Create(ctx context.Context, req RefundRequest) (r *domain.RefundIntent, err error) {
	ctx, span := t.rt.tracer.Start(ctx, "RefundTracker.Create")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", req.OrderID))

	switch {
	case !req.Type.Valid():
		return nil, domain.Validation(domain.CodeRefundInvalid, "unknown refund type")
	case !req.Reason.Valid():
		return nil, domain.Validation(domain.CodeRefundInvalid, "unknown refund reason")
	case req.Amount < 0:
		return nil, domain.Validation(domain.CodeRefundInvalid, "refund amount must not be negative")
	case req.Amount == 0 && req.Type != domain.RefundFull:
		return nil, domain.Validation(domain.CodeRefundInvalid, "refund amount is required")
	case req.Type == domain.RefundVendorSpecific && req.SubOrderID == "":
		return nil, domain.Validation(domain.CodeRefundInvalid, "a vendor-specific refund needs a sub-order")
	case req.RequestedBy.ID == "":
		return nil, domain.Validation(domain.CodeRefundInvalid, "requester identity is required")
	}

	order, err := t.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	limit := order.Totals.Grand
	if req.SubOrderID != "" {
		so, ok := order.SubOrder(req.SubOrderID)
		if !ok {
			return nil, domain.Validation(domain.CodeRefundInvalid, "sub-order does not belong to the order").
				WithMetadata("order_id", order.ID, "sub_order_id", req.SubOrderID)
		}
		limit = so.Totals.Grand
	}
	amount := req.Amount
	if amount == 0 {
		amount = limit
	}
	if amount > limit {
		return nil, domain.Validation(domain.CodeRefundInvalid, "refund amount exceeds the refundable total").
			WithMetadata("requested", fmt.Sprint(amount), "limit", fmt.Sprint(limit))
	}

	now := t.rt.clock()
	r = &domain.RefundIntent{
		ID:                uuid.NewString(),
		TenantID:          order.TenantID,
		OrderID:           order.ID,
		SubOrderID:        req.SubOrderID,
		Type:              req.Type,
		Currency:          order.Currency,
		RequestedAmount:   amount,
		Reason:            req.Reason,
		Note:              req.Note,
		Status:            domain.RefundPending,
		VisibleToCustomer: req.VisibleToCustomer,
		VisibleToAdmin:    req.VisibleToAdmin,
		CustomerID:        order.Customer.CustomerID,
		CustomerName:      order.Customer.Name,
		CustomerEmail:     order.Customer.Email,
		RequestedBy:       req.RequestedBy.String(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := t.store.CreateRefund(ctx, r); err != nil {
		return nil, fmt.Errorf("create refund intent: %w", err)
	}

	t.rt.metrics.RefundDecisions.WithLabelValues(string(domain.RefundPending)).Inc()
	t.rt.activity.Record(ctx, order.ID, orderlog.ActionRefundRequested, req.RequestedBy.String(), map[string]any{
		"refund_id":     r.ID,
		"refund_number": r.Number,
		"type":          r.Type,
		"amount":        r.RequestedAmount,
		"sub_order_id":  r.SubOrderID,
	})
	t.rt.logger.InfoContext(ctx, "refund intent created",
		"order_id", order.ID, "refund_id", r.ID, "refund_number", r.Number, "amount", r.RequestedAmount)
	return r, nil
}

func (t *RefundTracker) Review(ctx context.Context, req ReviewRequest) (out *RefundOutcome, err error) {
	ctx, span := t.rt.tracer.Start(ctx, "RefundTracker.Review")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("refund.id", req.RefundID))

	if req.Reviewer.ID == "" {
		return nil, domain.Validation(domain.CodeReviewerRequired, "reviewer identity is required")
	}
	status, ok := req.Decision.Status()
	if !ok {
		return nil, domain.Validation(domain.CodeRefundInvalid, "decision must be APPROVE or REJECT")
	}

	r, err := t.store.GetRefund(ctx, req.RefundID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RefundPending {
		return nil, notPending(r)
	}

	var approved *int64
	if status == domain.RefundApproved {
		amount := r.RequestedAmount
		if req.ApprovedAmount != nil {
			amount = *req.ApprovedAmount
		}
		if amount <= 0 || amount > r.RequestedAmount {
			return nil, domain.Validation(domain.CodeRefundInvalid, "approved amount must be positive and at most the requested amount").
				WithMetadata("requested", fmt.Sprint(r.RequestedAmount))
		}
		approved = &amount
	} else if req.ApprovedAmount != nil {
		return nil, domain.Validation(domain.CodeRefundInvalid, "a rejected refund carries no approved amount")
	}

	ok, err = t.store.ReviewRefund(ctx, ports.RefundReview{
		RefundID:       r.ID,
		Status:         status,
		ApprovedAmount: approved,
		ReviewedBy:     req.Reviewer.String(),
		Note:           req.Note,
		At:             t.rt.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("review refund intent: %w", err)
	}
	return t.afterUpdate(ctx, r, ok, status, orderlog.ActionRefundReviewed, req.Reviewer)
}

func (t *RefundTracker) Cancel(ctx context.Context, refundID string, actor domain.Actor) (out *RefundOutcome, err error) {
	ctx, span := t.rt.tracer.Start(ctx, "RefundTracker.Cancel")
	defer func() { endSpan(span, err) }()

	r, err := t.store.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RefundPending {
		return nil, notPending(r)
	}
	ok, err := t.store.CancelRefund(ctx, r.ID, t.rt.clock())
	if err != nil {
		return nil, fmt.Errorf("cancel refund intent: %w", err)
	}
	return t.afterUpdate(ctx, r, ok, domain.RefundCancelled, orderlog.ActionRefundCancelled, actor)
}

// afterUpdate re-reads the intent after a conditional write. A lost race that
// ended in the wanted status is reported as already handled.
func (t *RefundTracker) afterUpdate(
	ctx context.Context,
	before *domain.RefundIntent,
	written bool,
	want domain.RefundStatus,
	action orderlog.Action,
	actor domain.Actor,
) (*RefundOutcome, error) {
	current, err := t.store.GetRefund(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	if !written {
		if current.Status == want {
			return &RefundOutcome{Refund: current, AlreadyHandled: true}, nil
		}
		return nil, notPending(current)
	}

	t.rt.metrics.RefundDecisions.WithLabelValues(string(want)).Inc()
	t.rt.activity.Record(ctx, current.OrderID, action, actor.String(), map[string]any{
		"refund_id":       current.ID,
		"status":          current.Status,
		"approved_amount": current.ApprovedAmount,
	})
	t.rt.logger.InfoContext(ctx, "refund intent updated",
		"order_id", current.OrderID, "refund_id", current.ID, "status", string(current.Status))
	return &RefundOutcome{Refund: current}, nil
}

// List returns the intents visible to the filter's audience.
func (t *RefundTracker) List(ctx context.Context, f ports.RefundFilter) ([]domain.RefundIntent, error) {
	switch f.Audience {
	case domain.AudienceCustomer:
		if f.CustomerID == "" && f.OrderID == "" {
			return nil, domain.Validation(domain.CodeRefundInvalid, "customer listings need a customer or order id")
		}
	case domain.AudienceAdmin:
	default:
		return nil, domain.Validation(domain.CodeRefundInvalid, "audience must be CUSTOMER or ADMIN")
	}
	return t.store.ListRefunds(ctx, f)
}

func (t *RefundTracker) Get(ctx context.Context, refundID string) (*domain.RefundIntent, error) {
	return t.store.GetRefund(ctx, refundID)
}

func notPending(r *domain.RefundIntent) error {
	return domain.Conflict(domain.CodeRefundNotPending, "refund intent is not pending").
		WithMetadata("refund_id", r.ID, "status", string(r.Status))
}
