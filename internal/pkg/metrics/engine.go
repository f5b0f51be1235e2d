// Package metrics holds the Prometheus collectors of the order engine and
// its HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orders"

// Engine counts what the orchestration engine does. Collectors are created
// per instance and registered on the Registerer handed to NewEngine, so tests
// can use a fresh registry each time.
type Engine struct {
	OrdersSplit         prometheus.Counter
	CheckoutReplays     prometheus.Counter
	SubOrdersCreated    prometheus.Counter
	ShippingAllocations *prometheus.CounterVec
	SubOrderTransitions *prometheus.CounterVec
	OrdersExpired       *prometheus.CounterVec
	PaymentRetries      *prometheus.CounterVec
	RefundDecisions     *prometheus.CounterVec
	PayoutsSettled      prometheus.Counter
}

// NewEngine builds the engine collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		OrdersSplit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_split_total",
			Help:      "Parent orders created and split into sub-orders.",
		}),
		CheckoutReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_replays_total",
			Help:      "Checkouts answered with an already created order.",
		}),
		SubOrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sub_orders_created_total",
			Help:      "Vendor sub-orders created.",
		}),
		ShippingAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_allocations_total",
			Help:      "Shipping allocations by strategy actually used.",
		}, []string{"strategy"}),
		SubOrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sub_order_transitions_total",
			Help:      "Sub-order status transitions by target status.",
		}, []string{"to"}),
		OrdersExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_expired_total",
			Help:      "Orders expired, by trigger (check, sweep, operator).",
		}, []string{"trigger"}),
		PaymentRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_retries_total",
			Help:      "Payment retries by outcome.",
		}, []string{"outcome"}),
		RefundDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_intents_total",
			Help:      "Refund intents by resulting status.",
		}, []string{"status"}),
		PayoutsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_settled_total",
			Help:      "Delivered sub-orders marked as paid out.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersSplit,
			m.CheckoutReplays,
			m.SubOrdersCreated,
			m.ShippingAllocations,
			m.SubOrderTransitions,
			m.OrdersExpired,
			m.PaymentRetries,
			m.RefundDecisions,
			m.PayoutsSettled,
		)
	}
	return m
}
