package domain

import "time"

// RefundType scopes what a refund intent covers.
type RefundType string

const (
	RefundFull           RefundType = "FULL"
	RefundVendorSpecific RefundType = "VENDOR_SPECIFIC"
	RefundPartial        RefundType = "PARTIAL"
)

func (t RefundType) Valid() bool {
	return t == RefundFull || t == RefundVendorSpecific || t == RefundPartial
}

// RefundStatus is the review state of a refund intent.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundApproved  RefundStatus = "APPROVED"
	RefundRejected  RefundStatus = "REJECTED"
	RefundCancelled RefundStatus = "CANCELLED"
)

// RefundReason is the reason taxonomy offered to customers and admins.
type RefundReason string

const (
	ReasonDamagedItem     RefundReason = "DAMAGED_ITEM"
	ReasonWrongItem       RefundReason = "WRONG_ITEM"
	ReasonNotReceived     RefundReason = "ITEM_NOT_RECEIVED"
	ReasonNotAsDescribed  RefundReason = "NOT_AS_DESCRIBED"
	ReasonChangedMind     RefundReason = "CHANGED_MIND"
	ReasonDuplicateCharge RefundReason = "DUPLICATE_CHARGE"
	ReasonOrderCancelled  RefundReason = "ORDER_CANCELLED"
	ReasonOther           RefundReason = "OTHER"
)

func (r RefundReason) Valid() bool {
	switch r {
	case ReasonDamagedItem, ReasonWrongItem, ReasonNotReceived, ReasonNotAsDescribed,
		ReasonChangedMind, ReasonDuplicateCharge, ReasonOrderCancelled, ReasonOther:
		return true
	}
	return false
}

// Audience selects which visibility flag a listing honours.
type Audience string

const (
	AudienceCustomer Audience = "CUSTOMER"
	AudienceAdmin    Audience = "ADMIN"
)

// RefundIntent records a decision to refund. It never moves money; a
// settlement process outside this engine consumes approved intents.
type RefundIntent struct {
	ID                string
	TenantID          string
	Number            string
	OrderID           string
	SubOrderID        string
	Type              RefundType
	Currency          string
	RequestedAmount   int64
	ApprovedAmount    *int64
	Reason            RefundReason
	Note              string
	Status            RefundStatus
	VisibleToCustomer bool
	VisibleToAdmin    bool
	CustomerID        string
	CustomerName      string
	CustomerEmail     string
	RequestedBy       string
	ReviewedBy        string
	ReviewNote        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ReviewedAt        *time.Time
	CancelledAt       *time.Time
}

// VisibleTo reports whether the intent may be shown to the audience.
func (r RefundIntent) VisibleTo(a Audience) bool {
	switch a {
	case AudienceCustomer:
		return r.VisibleToCustomer
	case AudienceAdmin:
		return r.VisibleToAdmin
	}
	return false
}

// RefundDecision is the outcome of a review.
type RefundDecision string

const (
	DecisionApprove RefundDecision = "APPROVE"
	DecisionReject  RefundDecision = "REJECT"
)

// Status maps the decision to the status it produces.
func (d RefundDecision) Status() (RefundStatus, bool) {
	switch d {
	case DecisionApprove:
		return RefundApproved, true
	case DecisionReject:
		return RefundRejected, true
	}
	return "", false
}
