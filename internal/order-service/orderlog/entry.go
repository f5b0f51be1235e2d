// Package orderlog is the append-only activity trail of a Parent Order.
//
// Each row records one thing the engine did to an order (split, shipping
// allocation, a sub-order transition, expiry, a payment retry, a refund
// decision) together with the acting identity and the OpenTelemetry trace
// that was active, so an auditor can go from a row to the full trace.
package orderlog

import "time"

// Action names what happened to the order.
type Action string

const (
	ActionSplit              Action = "ORDER_SPLIT"
	ActionShippingAllocated  Action = "SHIPPING_ALLOCATED"
	ActionSubOrderTransition Action = "SUB_ORDER_TRANSITIONED"
	ActionExpired            Action = "ORDER_EXPIRED"
	ActionPaymentRetried     Action = "PAYMENT_RETRIED"
	ActionPaymentOutcome     Action = "PAYMENT_OUTCOME"
	ActionRefundRequested    Action = "REFUND_REQUESTED"
	ActionRefundReviewed     Action = "REFUND_REVIEWED"
	ActionRefundCancelled    Action = "REFUND_CANCELLED"
	ActionPayoutSettled      Action = "PAYOUT_SETTLED"
)

// Entry is a single row in the order_activity table.
type Entry struct {
	OrderID string
	Action  Action

	// Actor is the acting identity rendered as kind:id.
	Actor string

	// Detail is a JSON object describing the change, e.g.
	// {"sub_order_id":"...","from":"PENDING","to":"CONFIRMED"}.
	Detail string

	// TraceID and SpanID come from the span active when the entry was built.
	// Both are empty when no span was recording.
	TraceID string
	SpanID  string

	CreatedAt time.Time
}
