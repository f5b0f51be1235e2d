package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCommission(t *testing.T) {
	c, p := Commission(7000, decimal.RequireFromString("0.10"))
	assert.Equal(t, int64(700), c)
	assert.Equal(t, int64(6300), p)

	c, p = Commission(3000, decimal.RequireFromString("0.15"))
	assert.Equal(t, int64(450), c)
	assert.Equal(t, int64(2550), p)

	// 0.5 rounds away from zero.
	c, p = Commission(5, decimal.RequireFromString("0.1"))
	assert.Equal(t, int64(1), c)
	assert.Equal(t, int64(4), p)
}

func TestCheckedArithmetic(t *testing.T) {
	_, ok := MulMinor(4, 1<<62)
	assert.False(t, ok)
	_, ok = MulMinor(-1, 5)
	assert.False(t, ok)
	p, ok := MulMinor(3, 2500)
	assert.True(t, ok)
	assert.Equal(t, int64(7500), p)

	_, ok = AddMinor(math.MaxInt64, 1)
	assert.False(t, ok)
	_, ok = SubMinor(math.MinInt64, 1)
	assert.False(t, ok)

	line, ok := CheckedLineTotal(2, 3500, 500)
	assert.True(t, ok)
	assert.Equal(t, int64(6500), line)
	_, ok = CheckedLineTotal(4, 1<<62, 0)
	assert.False(t, ok, "a wrapped product must not pass as zero")
	_, ok = CheckedLineTotal(1, 100, 101)
	assert.False(t, ok)
}

func TestTotalsBalancedRejectsOverflow(t *testing.T) {
	ok := Totals{Subtotal: 10000, Shipping: 1000, Tax: 500, Discount: 200, Grand: 11300}
	assert.True(t, ok.Balanced())

	wrapped := Totals{Subtotal: 10000, Shipping: math.MaxInt64, Tax: math.MaxInt64, Grand: 9998}
	assert.False(t, wrapped.Balanced())
	_, fits := wrapped.Sum()
	assert.False(t, fits)
}

func TestValidRate(t *testing.T) {
	assert.True(t, ValidRate(decimal.Zero))
	assert.True(t, ValidRate(decimal.NewFromInt(1)))
	assert.False(t, ValidRate(decimal.RequireFromString("-0.01")))
	assert.False(t, ValidRate(decimal.RequireFromString("1.01")))
}

func TestNormalizeCurrency(t *testing.T) {
	c, ok := NormalizeCurrency(" ngn ")
	assert.True(t, ok)
	assert.Equal(t, "NGN", c)

	_, ok = NormalizeCurrency("US")
	assert.False(t, ok)
	_, ok = NormalizeCurrency("U$D")
	assert.False(t, ok)
}

func TestNumbers(t *testing.T) {
	day := mustTime(t, "2026-03-05T23:10:00Z")
	assert.Equal(t, "ORD-20260305-0042", FormatNumber(OrderNumberPrefix, day, 42))
	assert.Equal(t, "ORD-20260305-0042-V03", SubOrderNumber("ORD-20260305-0042", 3))
	assert.Equal(t, "20260305", DayKey(day))
}
