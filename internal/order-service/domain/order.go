package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Address is a postal address copied into the order at checkout time.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// CustomerSnapshot is an immutable copy of the customer's contact and
// shipping details taken at checkout. It is never refreshed from the
// customer's live profile.
type CustomerSnapshot struct {
	CustomerID      string
	Name            string
	Email           string
	Phone           string
	ShippingAddress Address
}

// Totals are amounts in minor currency units (cents, kobo).
type Totals struct {
	Subtotal int64
	Shipping int64
	Tax      int64
	Discount int64
	Grand    int64
}

// Sum is Subtotal + Shipping + Tax - Discount. ok is false when any step
// overflows.
func (t Totals) Sum() (sum int64, ok bool) {
	sum, ok = AddMinor(t.Subtotal, t.Shipping)
	if ok {
		sum, ok = AddMinor(sum, t.Tax)
	}
	if ok {
		sum, ok = SubMinor(sum, t.Discount)
	}
	return sum, ok
}

// Balanced reports whether Grand == Subtotal + Shipping + Tax - Discount
// without overflowing.
func (t Totals) Balanced() bool {
	sum, ok := t.Sum()
	return ok && t.Grand == sum
}

// Rebalance recomputes Grand from the other fields.
func (t Totals) Rebalance() Totals {
	t.Grand = t.Subtotal + t.Shipping + t.Tax - t.Discount
	return t
}

// Order is the Parent Order: one per checkout, spanning one or more vendors.
type Order struct {
	ID               string
	TenantID         string
	Number           string
	CheckoutKey      string
	Customer         CustomerSnapshot
	Currency         string
	Totals           Totals
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	PaymentReference string
	PaymentAttempts  int
	Status           ParentStatus
	StatusReason     string
	ShippingStrategy ShippingStrategy
	Items            []OrderItem
	SubOrders        []SubOrder
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiredAt        *time.Time
}

// AssignNumber sets the order number and derives every sub-order number from it.
func (o *Order) AssignNumber(number string) {
	o.Number = number
	for i := range o.SubOrders {
		o.SubOrders[i].Number = SubOrderNumber(number, o.SubOrders[i].Sequence)
	}
}

// SubOrderStatuses returns the current status of every sub-order.
func (o *Order) SubOrderStatuses() []SubOrderStatus {
	out := make([]SubOrderStatus, len(o.SubOrders))
	for i, so := range o.SubOrders {
		out[i] = so.Status
	}
	return out
}

// SubOrder returns the sub-order with the given id.
func (o *Order) SubOrder(id string) (*SubOrder, bool) {
	for i := range o.SubOrders {
		if o.SubOrders[i].ID == id {
			return &o.SubOrders[i], true
		}
	}
	return nil, false
}

// ExpiresAt is the end of the payment window.
func (o *Order) ExpiresAt(window time.Duration) time.Time {
	return o.CreatedAt.Add(window)
}

// OrderItem is one requested (product, vendor) line. Immutable once created.
type OrderItem struct {
	ID         string
	OrderID    string
	SubOrderID string
	VendorID   string
	ProductID  string
	Name       string
	Quantity   int64
	UnitPrice  int64
	Discount   int64
	Weight     decimal.NullDecimal
	Position   int
}

// LineTotal is quantity × unit price − line discount. Callers validate the
// line with CheckedLineTotal before it is stored.
func (i OrderItem) LineTotal() int64 {
	return i.Quantity*i.UnitPrice - i.Discount
}

// CheckedLineTotal is LineTotal for untrusted input. ok is false when the
// product overflows or the discount exceeds it.
func CheckedLineTotal(quantity, unitPrice, discount int64) (int64, bool) {
	gross, ok := MulMinor(quantity, unitPrice)
	if !ok || discount < 0 || discount > gross {
		return 0, false
	}
	return gross - discount, true
}

// HasWeight reports whether the line carries a strictly positive weight.
func (i OrderItem) HasWeight() bool {
	return i.Weight.Valid && i.Weight.Decimal.IsPositive()
}

// SubOrder is the vendor-scoped portion of a Parent Order.
type SubOrder struct {
	ID               string
	OrderID          string
	Number           string
	Sequence         int
	VendorID         string
	VendorName       string
	Currency         string
	Status           SubOrderStatus
	StatusReason     string
	Totals           Totals
	CommissionRate   decimal.Decimal
	CommissionAmount int64
	VendorPayout     int64
	Items            []OrderItem
	ConfirmedAt      *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	PayoutSettledAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Stamp records the transition time on the field matching status.
func (s *SubOrder) Stamp(status SubOrderStatus, at time.Time) {
	t := at
	switch status {
	case SubOrderConfirmed:
		s.ConfirmedAt = &t
	case SubOrderShipped:
		s.ShippedAt = &t
	case SubOrderDelivered:
		s.DeliveredAt = &t
	case SubOrderCancelled:
		s.CancelledAt = &t
	}
	s.Status = status
	s.UpdatedAt = at
}

// SubOrderNumber derives a sub-order number from its parent and sequence.
func SubOrderNumber(parentNumber string, seq int) string {
	return fmt.Sprintf("%s-V%02d", parentNumber, seq)
}

// Number prefixes for the tenant/day sequences.
const (
	OrderNumberPrefix  = "ORD"
	RefundNumberPrefix = "RFD"
)

// FormatNumber renders a date-sequenced number such as ORD-20261016-0042.
func FormatNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.UTC().Format("20060102"), seq)
}

// DayKey is the sequence bucket for a timestamp.
func DayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}
