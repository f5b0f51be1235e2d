package domain

import (
	"math"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundMinor rounds a decimal amount of minor units to a whole unit,
// half away from zero.
func RoundMinor(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// MulMinor returns a × b for non-negative operands, or false when the
// product does not fit in an int64.
func MulMinor(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// AddMinor returns a + b, or false on int64 overflow.
func AddMinor(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

// SubMinor returns a − b, or false on int64 overflow.
func SubMinor(a, b int64) (int64, bool) {
	s := a - b
	if (b > 0 && s > a) || (b < 0 && s < a) {
		return 0, false
	}
	return s, true
}

// ValidRate reports whether rate is a fraction in [0, 1].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}

// Commission computes the platform's cut of subtotal at rate and the
// vendor's net payout. commission == round(subtotal × rate) and
// payout == subtotal − commission.
func Commission(subtotal int64, rate decimal.Decimal) (commission, payout int64) {
	commission = RoundMinor(decimal.NewFromInt(subtotal).Mul(rate))
	return commission, subtotal - commission
}

// NormalizeCurrency upper-cases an ISO 4217 code and reports whether it looks valid.
func NormalizeCurrency(code string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return c, true
}
