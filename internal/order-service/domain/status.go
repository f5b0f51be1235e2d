package domain

// ParentStatus is the aggregate status of a Parent Order.
type ParentStatus string

const (
	ParentPending   ParentStatus = "PENDING"
	ParentSplit     ParentStatus = "SPLIT"
	ParentCompleted ParentStatus = "COMPLETED"
	ParentCancelled ParentStatus = "CANCELLED"
	ParentExpired   ParentStatus = "EXPIRED"
)

// Terminal reports whether no further transition may touch the order.
func (s ParentStatus) Terminal() bool {
	return s == ParentCompleted || s == ParentCancelled || s == ParentExpired
}

// SubOrderStatus is the fulfilment status of one vendor's portion.
type SubOrderStatus string

const (
	SubOrderPending    SubOrderStatus = "PENDING"
	SubOrderConfirmed  SubOrderStatus = "CONFIRMED"
	SubOrderProcessing SubOrderStatus = "PROCESSING"
	SubOrderShipped    SubOrderStatus = "SHIPPED"
	SubOrderDelivered  SubOrderStatus = "DELIVERED"
	SubOrderCancelled  SubOrderStatus = "CANCELLED"
)

// next holds the single forward step out of each non-terminal status.
var next = map[SubOrderStatus]SubOrderStatus{
	SubOrderPending:    SubOrderConfirmed,
	SubOrderConfirmed:  SubOrderProcessing,
	SubOrderProcessing: SubOrderShipped,
	SubOrderShipped:    SubOrderDelivered,
}

// Terminal reports whether the status admits no further transition.
func (s SubOrderStatus) Terminal() bool {
	return s == SubOrderDelivered || s == SubOrderCancelled
}

// Valid reports whether s is a known sub-order status.
func (s SubOrderStatus) Valid() bool {
	switch s {
	case SubOrderPending, SubOrderConfirmed, SubOrderProcessing,
		SubOrderShipped, SubOrderDelivered, SubOrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a sub-order may move from one status to another.
func CanTransition(from, to SubOrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == SubOrderCancelled {
		return true
	}
	return next[from] == to
}

// DeriveParentStatus computes the Parent Order status from the current
// status of every sibling sub-order. It holds no state, so running it
// twice against the same siblings always yields the same answer.
func DeriveParentStatus(statuses []SubOrderStatus) ParentStatus {
	if len(statuses) == 0 {
		return ParentPending
	}

	delivered, cancelled, progressed := 0, 0, false
	for _, s := range statuses {
		switch s {
		case SubOrderDelivered:
			delivered++
			progressed = true
		case SubOrderCancelled:
			cancelled++
		case SubOrderConfirmed, SubOrderProcessing, SubOrderShipped:
			progressed = true
		}
	}

	switch {
	case delivered == len(statuses):
		return ParentCompleted
	case cancelled == len(statuses):
		return ParentCancelled
	case progressed:
		return ParentSplit
	default:
		return ParentPending
	}
}

// PaymentStatus tracks the customer's payment for the whole checkout.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// Settled reports whether money has already been taken.
func (s PaymentStatus) Settled() bool {
	return s == PaymentPaid || s == PaymentCaptured
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentCaptured, PaymentFailed:
		return true
	}
	return false
}

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentWallet         PaymentMethod = "WALLET"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentBankTransfer, PaymentWallet, PaymentCashOnDelivery:
		return true
	}
	return false
}

// Prepaid reports whether the method collects money before fulfilment.
// Cash on delivery has nothing to retry or expire.
func (m PaymentMethod) Prepaid() bool {
	return m != PaymentCashOnDelivery
}
