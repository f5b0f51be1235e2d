package httpx

import "time"

// Amounts are integers in minor currency units. Rates and weights are
// decimal strings.

type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

type CustomerDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	ShippingAddress AddressDTO `json:"shipping_address"`
}

type TotalsDTO struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Discount int64 `json:"discount"`
	Grand    int64 `json:"grand"`
}

type CheckoutItemDTO struct {
	VendorID  string  `json:"vendor_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	Discount  int64   `json:"discount,omitempty"`
	Weight    *string `json:"weight,omitempty"`
}

type CheckoutRequest struct {
	Customer      CustomerDTO       `json:"customer"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	Items         []CheckoutItemDTO `json:"items"`
	Totals        TotalsDTO         `json:"totals"`
}

type OrderItemResponse struct {
	ID         string  `json:"id"`
	SubOrderID string  `json:"sub_order_id"`
	VendorID   string  `json:"vendor_id"`
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  int64   `json:"unit_price"`
	Discount   int64   `json:"discount"`
	LineTotal  int64   `json:"line_total"`
	Weight     *string `json:"weight,omitempty"`
}

type SubOrderResponse struct {
	ID               string              `json:"id"`
	Number           string              `json:"number"`
	VendorID         string              `json:"vendor_id"`
	VendorName       string              `json:"vendor_name"`
	Status           string              `json:"status"`
	StatusReason     string              `json:"status_reason,omitempty"`
	Currency         string              `json:"currency"`
	Totals           TotalsDTO           `json:"totals"`
	CommissionRate   string              `json:"commission_rate"`
	CommissionAmount int64               `json:"commission_amount"`
	VendorPayout     int64               `json:"vendor_payout"`
	Items            []OrderItemResponse `json:"items,omitempty"`
	ConfirmedAt      *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt        *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	PayoutSettledAt  *time.Time          `json:"payout_settled_at,omitempty"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type OrderResponse struct {
	ID               string              `json:"id"`
	TenantID         string              `json:"tenant_id"`
	Number           string              `json:"number"`
	Status           string              `json:"status"`
	StatusReason     string              `json:"status_reason,omitempty"`
	Customer         CustomerDTO         `json:"customer"`
	Currency         string              `json:"currency"`
	Totals           TotalsDTO           `json:"totals"`
	PaymentMethod    string              `json:"payment_method"`
	PaymentStatus    string              `json:"payment_status"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	PaymentAttempts  int                 `json:"payment_attempts"`
	ShippingStrategy string              `json:"shipping_strategy,omitempty"`
	Items            []OrderItemResponse `json:"items,omitempty"`
	SubOrders        []SubOrderResponse  `json:"sub_orders,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ExpiredAt        *time.Time          `json:"expired_at,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type ActivityResponse struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReallocateShippingRequest struct {
	Shipping int64 `json:"shipping"`
}

type ReallocationResponse struct {
	Strategy string           `json:"strategy"`
	Amounts  map[string]int64 `json:"amounts"`
	Order    OrderResponse    `json:"order"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type TransitionResponse struct {
	SubOrder       SubOrderResponse `json:"sub_order"`
	ParentStatus   string           `json:"parent_status"`
	AlreadyApplied bool             `json:"already_applied"`
}

// RecoveryResponse reports RemainingSeconds as zero unless the order is
// recoverable.
type RecoveryResponse struct {
	OrderID          string    `json:"order_id"`
	Recoverable      bool      `json:"recoverable"`
	IsExpired        bool      `json:"is_expired"`
	Reason           string    `json:"reason"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type PaymentRetryResponse struct {
	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Attempt          int    `json:"attempt"`
}

type ExpireRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ExpiryResponse struct {
	AlreadyExpired bool          `json:"already_expired"`
	Order          OrderResponse `json:"order"`
}

type PaymentOutcomeRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type PayoutResponse struct {
	VendorID    string   `json:"vendor_id"`
	Currency    string   `json:"currency"`
	SubOrderIDs []string `json:"sub_order_ids"`
	Total       int64    `json:"total"`
	Threshold   int64    `json:"threshold"`
	Status      string   `json:"status"`
}

type PayoutListResponse struct {
	Payouts []PayoutResponse `json:"payouts"`
}

type SettlePayoutsRequest struct {
	SubOrderIDs []string `json:"sub_order_ids"`
}

type SettlePayoutsResponse struct {
	Settled int64 `json:"settled"`
}

type CreateRefundRequest struct {
	OrderID           string `json:"order_id"`
	SubOrderID        string `json:"sub_order_id,omitempty"`
	Type              string `json:"type"`
	Amount            int64  `json:"amount,omitempty"`
	Reason            string `json:"reason"`
	Note              string `json:"note,omitempty"`
	VisibleToCustomer bool   `json:"visible_to_customer"`
	VisibleToAdmin    bool   `json:"visible_to_admin"`
}

type ReviewRefundRequest struct {
	Decision       string `json:"decision"`
	ApprovedAmount *int64 `json:"approved_amount,omitempty"`
	Note           string `json:"note,omitempty"`
}

type RefundResponse struct {
	ID                string     `json:"id"`
	Number            string     `json:"number"`
	OrderID           string     `json:"order_id"`
	SubOrderID        string     `json:"sub_order_id,omitempty"`
	Type              string     `json:"type"`
	Currency          string     `json:"currency"`
	RequestedAmount   int64      `json:"requested_amount"`
	ApprovedAmount    *int64     `json:"approved_amount,omitempty"`
	Reason            string     `json:"reason"`
	Note              string     `json:"note,omitempty"`
	Status            string     `json:"status"`
	VisibleToCustomer bool       `json:"visible_to_customer"`
	VisibleToAdmin    bool       `json:"visible_to_admin"`
	CustomerID        string     `json:"customer_id"`
	CustomerName      string     `json:"customer_name"`
	RequestedBy       string     `json:"requested_by"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	ReviewNote        string     `json:"review_note,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	AlreadyHandled    bool       `json:"already_handled,omitempty"`
}

type RefundListResponse struct {
	Refunds []RefundResponse `json:"refunds"`
}

type ErrorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
