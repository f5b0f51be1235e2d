package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// TransitionRequest moves one sub-order to a new status on behalf of Actor.
type TransitionRequest struct {
	SubOrderID string
	To         domain.SubOrderStatus
	Actor      domain.Actor
	Reason     string
}

// TransitionResult carries the sub-order after the change and the parent
// status derived from all siblings. AlreadyApplied is true when the
// sub-order was found in the target status already.
type TransitionResult struct {
	SubOrder       *domain.SubOrder
	ParentStatus   domain.ParentStatus
	AlreadyApplied bool
}

// Lifecycle advances sub-orders through their state machine.
type Lifecycle struct {
	store ports.OrderStore
	rt    *runtime
}

func (l *Lifecycle) Transition(ctx context.Context, req TransitionRequest) (res *TransitionResult, err error) {
	ctx, span := l.rt.tracer.Start(ctx, "Lifecycle.Transition")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("sub_order.id", req.SubOrderID),
		attribute.String("sub_order.to", string(req.To)),
	)

	if !req.To.Valid() {
		return nil, domain.Validation(domain.CodeInvalidTransition, "unknown sub-order status").
			WithMetadata("to", string(req.To))
	}

	so, err := l.store.GetSubOrder(ctx, req.SubOrderID)
	if err != nil {
		return nil, err
	}
	if !req.Actor.CanManage(so.VendorID) {
		return nil, domain.Conflict(domain.CodeSubOrderNotOwned, "sub-order belongs to another vendor").
			WithMetadata("sub_order_id", so.ID)
	}

	if so.Status == req.To {
		return l.settle(ctx, so, true)
	}
	if !domain.CanTransition(so.Status, req.To) {
		return nil, invalidTransition(so, req.To)
	}

	from := so.Status
	ok, err := l.store.TransitionSubOrder(ctx, ports.SubOrderTransition{
		SubOrderID: so.ID,
		From:       from,
		To:         req.To,
		Reason:     req.Reason,
		At:         l.rt.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("transition sub-order: %w", err)
	}

	current, err := l.store.GetSubOrder(ctx, so.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved it first. Reaching the same target counts as done.
		if current.Status == req.To {
			return l.settle(ctx, current, true)
		}
		return nil, invalidTransition(current, req.To)
	}

	l.rt.metrics.SubOrderTransitions.WithLabelValues(string(req.To)).Inc()
	l.rt.activity.Record(ctx, so.OrderID, orderlog.ActionSubOrderTransition, req.Actor.String(), map[string]any{
		"sub_order_id": so.ID,
		"from":         from,
		"to":           req.To,
		"reason":       req.Reason,
	})
	l.rt.logger.InfoContext(ctx, "sub-order transitioned",
		"order_id", so.OrderID,
		"sub_order_id", so.ID,
		"vendor_id", so.VendorID,
		"from", string(from),
		"to", string(req.To),
	)
	return l.settle(ctx, current, false)
}

func (l *Lifecycle) settle(ctx context.Context, so *domain.SubOrder, already bool) (*TransitionResult, error) {
	status, err := l.Recompute(ctx, so.OrderID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{SubOrder: so, ParentStatus: status, AlreadyApplied: already}, nil
}

// Recompute derives the parent status from the current status of every
// sibling and stores it. It is safe to run any number of times, concurrently.
func (l *Lifecycle) Recompute(ctx context.Context, orderID string) (domain.ParentStatus, error) {
	statuses, err := l.store.ListSubOrderStatuses(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("recompute order status: %w", err)
	}
	derived := domain.DeriveParentStatus(statuses)

	written, err := l.store.SetDerivedStatus(ctx, orderID, derived, l.rt.clock())
	if err != nil {
		return "", fmt.Errorf("recompute order status: %w", err)
	}
	if !written {
		return domain.ParentExpired, nil
	}
	return derived, nil
}

func invalidTransition(so *domain.SubOrder, to domain.SubOrderStatus) error {
	return domain.Conflict(domain.CodeInvalidTransition, "sub-order cannot move to the requested status").
		WithMetadata("sub_order_id", so.ID, "from", string(so.Status), "to", string(to))
}
