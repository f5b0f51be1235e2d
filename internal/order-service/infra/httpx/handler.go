package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/app"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/infra/httpx/middlewares"
)

// HeaderReplayed marks a checkout answered from an earlier request with the
// same idempotency key.
const HeaderReplayed = "Idempotent-Replayed"

// Handler exposes the engine over HTTP. It only translates: every rule
// lives in the engine.
type Handler struct {
	engine *app.Engine
	logger *slog.Logger
}

func NewHandler(engine *app.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// Checkout splits a checkout into a Parent Order and its Sub-Orders.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	key := strings.TrimSpace(r.Header.Get(middlewares.HeaderIdempotencyKey))
	checkout, err := toCheckout(middlewares.TenantFromContext(r.Context()), key, req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	res, err := h.engine.Splitter.Split(r.Context(), checkout)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		w.Header().Set(HeaderReplayed, "true")
		status = http.StatusOK
	}
	writeJSON(w, status, mapOrder(res.Order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = n
	}
	orders, err := h.engine.ListOrders(r.Context(), middlewares.TenantFromContext(r.Context()), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	out := OrderListResponse{Orders: make([]OrderResponse, len(orders))}
	for i := range orders {
		out.Orders[i] = mapOrder(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrderByID returns the order with its sub-orders and items. Orders of
// another tenant are reported as missing.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	return h.loadOrderByID(w, r, chi.URLParam(r, "id"))
}

// loadOrderByID hides orders of other tenants behind a 404.
func (h *Handler) loadOrderByID(w http.ResponseWriter, r *http.Request, id string) (*domain.Order, bool) {
	order, err := h.engine.GetOrder(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return nil, false
	}
	if tenant := middlewares.TenantFromContext(r.Context()); tenant != "" && tenant != order.TenantID {
		h.writeFailure(w, r, domain.NotFound(domain.CodeOrderNotFound, "order not found").
			WithMetadata("order_id", order.ID))
		return nil, false
	}
	return order, true
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	if _, ok := h.loadOrder(w, r); !ok {
		return
	}
	entries, err := h.engine.Activity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	out := make([]ActivityResponse, len(entries))
	for i, e := range entries {
		out[i] = mapActivity(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ReallocateShipping(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req ReallocateShippingRequest
	if !decode(w, r, &req) {
		return
	}
	if _, ok := h.loadOrder(w, r); !ok {
		return
	}
	res, err := h.engine.Shipping.Reallocate(r.Context(), chi.URLParam(r, "id"), req.Shipping, actor)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReallocationResponse{
		Strategy: string(res.Strategy),
		Amounts:  res.Amounts,
		Order:    mapOrder(res.Order),
	})
}

// TransitionSubOrder moves a sub-order on behalf of its vendor or an admin.
func (h *Handler) TransitionSubOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.Lifecycle.Transition(r.Context(), app.TransitionRequest{
		SubOrderID: chi.URLParam(r, "id"),
		To:         domain.SubOrderStatus(strings.ToUpper(req.Status)),
		Actor:      actor,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{
		SubOrder:       mapSubOrder(*res.SubOrder),
		ParentStatus:   string(res.ParentStatus),
		AlreadyApplied: res.AlreadyApplied,
	})
}

func (h *Handler) CheckRecovery(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.loadOrder(w, r); !ok {
		return
	}
	st, err := h.engine.Recovery.Check(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRecovery(st))
}

func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	if !h.ownsOrder(w, actor, order) {
		return
	}
	res, err := h.engine.Recovery.RetryPayment(r.Context(), order.ID, actor)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentRetryResponse{
		OrderID:          res.OrderID,
		OrderNumber:      res.OrderNumber,
		Reference:        res.Reference,
		AuthorizationURL: res.AuthorizationURL,
		Attempt:          res.Attempt,
	})
}

func (h *Handler) ExpireOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req ExpireRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if _, ok := h.loadOrder(w, r); !ok {
		return
	}
	res, err := h.engine.Recovery.Expire(r.Context(), chi.URLParam(r, "id"), req.Reason, actor)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpiryResponse{AlreadyExpired: res.AlreadyExpired, Order: mapOrder(res.Order)})
}

// PaymentCallback records the settlement outcome reported by the payment
// gateway for an order. The gateway webhook reaches us as an admin actor.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	var req PaymentOutcomeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}
	if _, ok := h.loadOrderByID(w, r, req.OrderID); !ok {
		return
	}
	order, err := h.engine.Recovery.RecordPaymentOutcome(r.Context(), req.OrderID,
		domain.PaymentStatus(strings.ToUpper(req.Status)))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) VendorPayouts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	vendorID := chi.URLParam(r, "id")
	if actor.Kind != domain.ActorAdmin && (actor.Kind != domain.ActorVendor || actor.ID != vendorID) {
		writeError(w, http.StatusForbidden, "forbidden", "payouts are visible to the vendor and admins only")
		return
	}
	summaries, err := h.engine.Payouts.Eligibility(r.Context(), vendorID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	out := PayoutListResponse{Payouts: make([]PayoutResponse, len(summaries))}
	for i, s := range summaries {
		out.Payouts[i] = mapPayout(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SettlePayouts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req SettlePayoutsRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.engine.Payouts.MarkSettled(r.Context(), chi.URLParam(r, "id"), req.SubOrderIDs, actor)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SettlePayoutsResponse{Settled: n})
}

// CreateRefund records a refund intent. Customers may only ask for refunds
// on their own orders.
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CreateRefundRequest
	if !decode(w, r, &req) {
		return
	}
	if actor.Kind == domain.ActorCustomer {
		order, err := h.engine.GetOrder(r.Context(), req.OrderID)
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		if !h.ownsOrder(w, actor, order) {
			return
		}
	}
	refund, err := h.engine.Refunds.Create(r.Context(), app.RefundRequest{
		OrderID:           req.OrderID,
		SubOrderID:        req.SubOrderID,
		Type:              domain.RefundType(strings.ToUpper(req.Type)),
		Amount:            req.Amount,
		Reason:            domain.RefundReason(strings.ToUpper(req.Reason)),
		Note:              req.Note,
		VisibleToCustomer: req.VisibleToCustomer,
		VisibleToAdmin:    req.VisibleToAdmin,
		RequestedBy:       actor,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapRefund(refund))
}

// ListRefunds picks the audience from the acting identity: customers see
// their own visible intents, admins the admin-visible ones.
func (h *Handler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	filter := ports.RefundFilter{
		TenantID: middlewares.TenantFromContext(r.Context()),
		OrderID:  r.URL.Query().Get("order_id"),
	}
	switch actor.Kind {
	case domain.ActorCustomer:
		filter.Audience = domain.AudienceCustomer
		filter.CustomerID = actor.ID
	case domain.ActorAdmin:
		filter.Audience = domain.AudienceAdmin
		filter.CustomerID = r.URL.Query().Get("customer_id")
	default:
		writeError(w, http.StatusForbidden, "forbidden", "refunds are listed for customers and admins only")
		return
	}
	refunds, err := h.engine.Refunds.List(r.Context(), filter)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	out := RefundListResponse{Refunds: make([]RefundResponse, len(refunds))}
	for i := range refunds {
		out.Refunds[i] = mapRefund(&refunds[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	refund, ok := h.loadRefund(w, r, actor)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapRefund(refund))
}

func (h *Handler) ReviewRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req ReviewRefundRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.engine.Refunds.Review(r.Context(), app.ReviewRequest{
		RefundID:       chi.URLParam(r, "id"),
		Decision:       domain.RefundDecision(strings.ToUpper(req.Decision)),
		ApprovedAmount: req.ApprovedAmount,
		Reviewer:       actor,
		Note:           req.Note,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	res := mapRefund(out.Refund)
	res.AlreadyHandled = out.AlreadyHandled
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CancelRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadRefund(w, r, actor); !ok {
		return
	}
	out, err := h.engine.Refunds.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	res := mapRefund(out.Refund)
	res.AlreadyHandled = out.AlreadyHandled
	writeJSON(w, http.StatusOK, res)
}

// loadRefund hides intents the actor may not see behind a 404.
func (h *Handler) loadRefund(w http.ResponseWriter, r *http.Request, actor domain.Actor) (*domain.RefundIntent, bool) {
	refund, err := h.engine.Refunds.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return nil, false
	}
	visible := false
	switch actor.Kind {
	case domain.ActorAdmin:
		visible = refund.VisibleToAdmin
	case domain.ActorCustomer:
		visible = refund.VisibleToCustomer && refund.CustomerID == actor.ID
	}
	if tenant := middlewares.TenantFromContext(r.Context()); tenant != "" && tenant != refund.TenantID {
		visible = false
	}
	if !visible {
		h.writeFailure(w, r, domain.NotFound(domain.CodeRefundNotFound, "refund intent not found").
			WithMetadata("refund_id", refund.ID))
		return nil, false
	}
	return refund, true
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middlewares.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "actor_required",
			"X-Actor-Kind and X-Actor-ID headers are required")
		return domain.Actor{}, false
	}
	return actor, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return actor, false
	}
	if actor.Kind != domain.ActorAdmin {
		writeError(w, http.StatusForbidden, "admin_required", "")
		return actor, false
	}
	return actor, true
}

// ownsOrder lets admins through and checks the customer on the order otherwise.
func (h *Handler) ownsOrder(w http.ResponseWriter, actor domain.Actor, order *domain.Order) bool {
	if actor.Kind == domain.ActorAdmin {
		return true
	}
	if actor.Kind == domain.ActorCustomer && actor.ID == order.Customer.CustomerID {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden", "order belongs to another customer")
	return false
}
