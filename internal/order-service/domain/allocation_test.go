package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(values []int64) int64 {
	var s int64
	for _, v := range values {
		s += v
	}
	return s
}

func TestAllocateShipping_Proportional(t *testing.T) {
	got := AllocateShipping(1000, []ShareBasis{{Subtotal: 7000}, {Subtotal: 3000}})

	assert.Equal(t, StrategyProportional, got.Strategy)
	assert.Equal(t, []int64{700, 300}, got.Amounts)
}

func TestAllocateShipping_RemainderGoesToLargestSubtotal(t *testing.T) {
	got := AllocateShipping(100, []ShareBasis{{Subtotal: 100}, {Subtotal: 100}, {Subtotal: 200}})

	// 25, 25, 50 exactly.
	assert.Equal(t, []int64{25, 25, 50}, got.Amounts)

	got = AllocateShipping(100, []ShareBasis{{Subtotal: 1}, {Subtotal: 1}, {Subtotal: 1}})
	// 33.33 rounds to 33 each; the leftover unit lands on the first of the tied largest.
	assert.Equal(t, []int64{34, 33, 33}, got.Amounts)
	assert.Equal(t, int64(100), sum(got.Amounts))
}

func TestAllocateShipping_NegativeRemainder(t *testing.T) {
	// Each third of 200 is 66.67 which rounds up to 67; 3 x 67 overshoots by one.
	got := AllocateShipping(200, []ShareBasis{{Subtotal: 10}, {Subtotal: 10}, {Subtotal: 10}})

	assert.Equal(t, []int64{66, 67, 67}, got.Amounts)
	assert.Equal(t, int64(200), sum(got.Amounts))
}

func TestAllocateShipping_NegativeRemainderNeverGoesBelowZero(t *testing.T) {
	// The designated share rounds to zero while the other three round up
	// (0.3125 -> 0, 1.5625 -> 2), overshooting by one unit.
	weights := []decimal.Decimal{
		decimal.RequireFromString("0.2"),
		decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1),
	}
	got := distribute(5, weights, []int64{100, 1, 1, 1})

	assert.Equal(t, []int64{0, 1, 2, 2}, got)
}

func TestAllocateShipping_SingleSubOrder(t *testing.T) {
	got := AllocateShipping(999, []ShareBasis{{Subtotal: 5}})
	assert.Equal(t, []int64{999}, got.Amounts)
}

func TestAllocateShipping_ZeroSubtotalSplitsEqually(t *testing.T) {
	got := AllocateShipping(1001, []ShareBasis{{Subtotal: 0}, {Subtotal: 0}})

	assert.Equal(t, StrategyProportional, got.Strategy)
	assert.Equal(t, int64(1001), sum(got.Amounts))
	assert.InDelta(t, got.Amounts[0], got.Amounts[1], 1)
}

func TestAllocateShipping_Weight(t *testing.T) {
	got := AllocateShipping(1000, []ShareBasis{
		{Subtotal: 9000, Weight: decimal.NewFromInt(1), WeightKnown: true},
		{Subtotal: 1000, Weight: decimal.NewFromInt(3), WeightKnown: true},
	})

	assert.Equal(t, StrategyWeight, got.Strategy)
	assert.Equal(t, []int64{250, 750}, got.Amounts)
}

func TestAllocateShipping_WeightFallsBack(t *testing.T) {
	t.Run("one basis without weight", func(t *testing.T) {
		got := AllocateShipping(1000, []ShareBasis{
			{Subtotal: 7000, Weight: decimal.NewFromInt(1), WeightKnown: true},
			{Subtotal: 3000},
		})
		assert.Equal(t, StrategyProportional, got.Strategy)
		assert.Equal(t, []int64{700, 300}, got.Amounts)
	})

	t.Run("total weight zero", func(t *testing.T) {
		got := AllocateShipping(1000, []ShareBasis{
			{Subtotal: 7000, Weight: decimal.Zero, WeightKnown: true},
			{Subtotal: 3000, Weight: decimal.Zero, WeightKnown: true},
		})
		assert.Equal(t, StrategyProportional, got.Strategy)
	})
}

func TestSplitProportional_Empty(t *testing.T) {
	require.Empty(t, SplitProportional(100, nil))
}

func TestDesignatedIndex(t *testing.T) {
	assert.Equal(t, 0, DesignatedIndex([]int64{5}))
	assert.Equal(t, 1, DesignatedIndex([]int64{5, 9, 9}))
	assert.Equal(t, 0, DesignatedIndex([]int64{0, 0}))
}
