// Package app holds the order orchestration engine: the splitter, shipping
// allocator, sub-order lifecycle, payout calculator, refund tracker and
// recovery manager, wired together by Engine.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/metrics"
)

const tracerName = "github.com/jcmexdev/multivendor-orders/app"

// Config carries the business settings of the engine.
type Config struct {
	// PlatformCommissionRate applies when a vendor has neither an override
	// nor a tier default.
	PlatformCommissionRate decimal.Decimal
	// MinimumPayout is the eligibility threshold in minor units.
	MinimumPayout int64
	// PaymentCallbackURL is passed to the payment initiator on retries.
	PaymentCallbackURL string
}

// runtime is shared by every component.
type runtime struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Engine
	activity *orderlog.Recorder
	trail    orderlog.Repository
	now      func() time.Time
}

// Option customises the engine runtime.
type Option func(*runtime)

func WithLogger(l *slog.Logger) Option {
	return func(r *runtime) { r.logger = l }
}

func WithMetrics(m *metrics.Engine) Option {
	return func(r *runtime) { r.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *runtime) { r.tracer = t }
}

// WithActivityLog records order activity in repo.
func WithActivityLog(repo orderlog.Repository) Option {
	return func(r *runtime) { r.trail = repo }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *runtime) { r.now = now }
}

func newRuntime(opts []Option) *runtime {
	rt := &runtime{logger: slog.Default()}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	if rt.tracer == nil {
		rt.tracer = otel.Tracer(tracerName)
	}
	if rt.metrics == nil {
		rt.metrics = metrics.NewEngine(nil)
	}
	if rt.now == nil {
		rt.now = time.Now
	}
	rt.activity = orderlog.NewRecorder(rt.trail, rt.logger)
	return rt
}

func (rt *runtime) clock() time.Time {
	return rt.now().UTC()
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Engine is the multi-vendor order orchestration engine.
type Engine struct {
	Splitter  *Splitter
	Shipping  *ShippingAllocator
	Lifecycle *Lifecycle
	Payouts   *PayoutCalculator
	Refunds   *RefundTracker
	Recovery  *RecoveryManager

	store ports.Store
	rt    *runtime
}

// NewEngine wires the components around one store. catalog may be nil, in
// which case only weights carried on the items are used.
func NewEngine(
	store ports.Store,
	directory ports.VendorDirectory,
	catalog ports.ProductCatalog,
	payments ports.PaymentInitiator,
	cfg Config,
	opts ...Option,
) *Engine {
	rt := newRuntime(opts)

	shipping := &ShippingAllocator{store: store, catalog: catalog, rt: rt}
	payouts := &PayoutCalculator{store: store, minimum: cfg.MinimumPayout, rt: rt}

	e := &Engine{
		Shipping: shipping,
		Payouts:  payouts,
		Splitter: &Splitter{
			store:        store,
			directory:    directory,
			shipping:     shipping,
			payouts:      payouts,
			platformRate: cfg.PlatformCommissionRate,
			rt:           rt,
		},
		Lifecycle: &Lifecycle{store: store, rt: rt},
		Refunds:   &RefundTracker{store: store, rt: rt},
		Recovery: &RecoveryManager{
			store:       store,
			payments:    payments,
			callbackURL: cfg.PaymentCallbackURL,
			rt:          rt,
		},
		store: store,
		rt:    rt,
	}
	return e
}

// GetOrder returns an order with its sub-orders and items.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}

// ListOrders expires the tenant's overdue orders, then lists its orders
// newest first. Listing is the user-facing action that drives the sweep.
func (e *Engine) ListOrders(ctx context.Context, tenantID string, limit int) (orders []domain.Order, err error) {
	ctx, span := e.rt.tracer.Start(ctx, "Engine.ListOrders")
	defer func() { endSpan(span, err) }()

	if tenantID == "" {
		return nil, domain.Validation(domain.CodeMissingTenant, "tenant id is required")
	}
	if _, err := e.Recovery.Sweep(ctx, tenantID); err != nil {
		// A failed sweep leaves overdue orders for the next listing.
		e.rt.logger.WarnContext(ctx, "expiry sweep failed", "tenant_id", tenantID, "error", err)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return e.store.ListOrders(ctx, tenantID, limit)
}

// Activity returns the order's activity trail, oldest first.
func (e *Engine) Activity(ctx context.Context, orderID string) ([]orderlog.Entry, error) {
	if _, err := e.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if e.rt.trail == nil {
		return nil, nil
	}
	return e.rt.trail.List(ctx, orderID)
}
