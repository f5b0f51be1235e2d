package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveParentStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []SubOrderStatus
		want     ParentStatus
	}{
		{"all delivered", []SubOrderStatus{SubOrderDelivered, SubOrderDelivered}, ParentCompleted},
		{"all cancelled", []SubOrderStatus{SubOrderCancelled, SubOrderCancelled}, ParentCancelled},
		{"delivered and pending", []SubOrderStatus{SubOrderDelivered, SubOrderPending}, ParentSplit},
		{"all pending", []SubOrderStatus{SubOrderPending, SubOrderPending}, ParentPending},
		{"one confirmed", []SubOrderStatus{SubOrderPending, SubOrderConfirmed}, ParentSplit},
		{"shipped and cancelled", []SubOrderStatus{SubOrderShipped, SubOrderCancelled}, ParentSplit},
		{"delivered and cancelled", []SubOrderStatus{SubOrderDelivered, SubOrderCancelled}, ParentSplit},
		{"pending and cancelled", []SubOrderStatus{SubOrderPending, SubOrderCancelled}, ParentPending},
		{"single delivered", []SubOrderStatus{SubOrderDelivered}, ParentCompleted},
		{"empty", nil, ParentPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveParentStatus(tt.statuses))
			// Deriving again from the same siblings gives the same answer.
			assert.Equal(t, tt.want, DeriveParentStatus(tt.statuses))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(SubOrderPending, SubOrderConfirmed))
	assert.True(t, CanTransition(SubOrderConfirmed, SubOrderProcessing))
	assert.True(t, CanTransition(SubOrderProcessing, SubOrderShipped))
	assert.True(t, CanTransition(SubOrderShipped, SubOrderDelivered))

	for _, from := range []SubOrderStatus{SubOrderPending, SubOrderConfirmed, SubOrderProcessing, SubOrderShipped} {
		assert.True(t, CanTransition(from, SubOrderCancelled), "cancel from %s", from)
	}

	assert.False(t, CanTransition(SubOrderPending, SubOrderShipped), "no skipping")
	assert.False(t, CanTransition(SubOrderShipped, SubOrderConfirmed), "no going back")
	assert.False(t, CanTransition(SubOrderDelivered, SubOrderCancelled))
	assert.False(t, CanTransition(SubOrderCancelled, SubOrderPending))
	assert.False(t, CanTransition(SubOrderPending, SubOrderPending))
}

func TestParentStatusTerminal(t *testing.T) {
	assert.False(t, ParentPending.Terminal())
	assert.False(t, ParentSplit.Terminal())
	assert.True(t, ParentCompleted.Terminal())
	assert.True(t, ParentCancelled.Terminal())
	assert.True(t, ParentExpired.Terminal())
}

func TestPaymentMethodPrepaid(t *testing.T) {
	assert.True(t, PaymentCard.Prepaid())
	assert.True(t, PaymentWallet.Prepaid())
	assert.False(t, PaymentCashOnDelivery.Prepaid())
	assert.False(t, PaymentMethod("CHEQUE").Valid())
}
