package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/infra/httpx/middlewares"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/metrics"
)

// RouterOptions carries the optional pieces around the handler. A nil
// Metrics disables request metrics; a nil Gatherer hides /metrics.
type RouterOptions struct {
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	// Health is probed by /health, typically the store's ping.
	Health func(ctx context.Context) error
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.Get("/health", healthHandler(opts.Health))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middlewares.Identity)

		r.Post("/orders", handler.Checkout)
		r.Get("/orders", handler.ListOrders)
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", handler.GetOrderByID)
			r.Get("/activity", handler.Activity)
			r.Put("/shipping", handler.ReallocateShipping)
			r.Get("/recovery", handler.CheckRecovery)
			r.Post("/payment/retry", handler.RetryPayment)
			r.Post("/expire", handler.ExpireOrder)
		})
		r.Post("/sub-orders/{id}/transitions", handler.TransitionSubOrder)
		r.Post("/payments/callback", handler.PaymentCallback)

		r.Get("/vendors/{id}/payouts", handler.VendorPayouts)
		r.Post("/vendors/{id}/payouts/settle", handler.SettlePayouts)

		r.Post("/refunds", handler.CreateRefund)
		r.Get("/refunds", handler.ListRefunds)
		r.Route("/refunds/{id}", func(r chi.Router) {
			r.Get("/", handler.GetRefund)
			r.Post("/review", handler.ReviewRefund)
			r.Post("/cancel", handler.CancelRefund)
		})
	})
	return r
}

func healthHandler(probe func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := probe(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
