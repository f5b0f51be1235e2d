package domain

import "github.com/shopspring/decimal"

// ShippingStrategy names how a shipping total was distributed.
type ShippingStrategy string

const (
	// StrategyWeight splits by Σ(item weight × quantity) per sub-order.
	StrategyWeight ShippingStrategy = "WEIGHT"
	// StrategyProportional splits by sub-order subtotal, or equally when
	// every subtotal is zero.
	StrategyProportional ShippingStrategy = "PROPORTIONAL"
)

// ShareBasis is one sub-order's claim on a shared amount.
type ShareBasis struct {
	Subtotal int64
	// Weight is Σ(item weight × quantity). Only meaningful when WeightKnown.
	Weight      decimal.Decimal
	WeightKnown bool
}

// ShippingAllocation is the result of distributing a shipping total.
type ShippingAllocation struct {
	Strategy ShippingStrategy
	Amounts  []int64
}

// AllocateShipping distributes total across bases. The weight strategy is
// used only when every basis has a known weight and the combined weight is
// positive; anything else falls back to proportional. Amounts always sum to
// total exactly.
func AllocateShipping(total int64, bases []ShareBasis) ShippingAllocation {
	subtotals := make([]int64, len(bases))
	for i, b := range bases {
		subtotals[i] = b.Subtotal
	}

	if weights, ok := usableWeights(bases); ok {
		return ShippingAllocation{
			Strategy: StrategyWeight,
			Amounts:  distribute(total, weights, subtotals),
		}
	}
	return ShippingAllocation{
		Strategy: StrategyProportional,
		Amounts:  SplitProportional(total, subtotals),
	}
}

func usableWeights(bases []ShareBasis) ([]decimal.Decimal, bool) {
	if len(bases) == 0 {
		return nil, false
	}
	weights := make([]decimal.Decimal, len(bases))
	sum := decimal.Zero
	for i, b := range bases {
		if !b.WeightKnown || b.Weight.IsNegative() {
			return nil, false
		}
		weights[i] = b.Weight
		sum = sum.Add(b.Weight)
	}
	if !sum.IsPositive() {
		return nil, false
	}
	return weights, true
}

// SplitProportional distributes total by subtotal share, equally when the
// subtotals sum to zero. Used for shipping, tax and discount.
func SplitProportional(total int64, subtotals []int64) []int64 {
	weights := make([]decimal.Decimal, len(subtotals))
	for i, s := range subtotals {
		weights[i] = decimal.NewFromInt(s)
	}
	return distribute(total, weights, subtotals)
}

// distribute rounds each share half away from zero and hands the rounding
// remainder to the designated sub-order (largest subtotal, first on ties).
// A negative remainder never drives an amount below zero: once the
// designated amount is exhausted, units come off the largest allocation.
func distribute(total int64, weights []decimal.Decimal, subtotals []int64) []int64 {
	out := make([]int64, len(weights))
	if len(weights) == 0 {
		return out
	}

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}

	t := decimal.NewFromInt(total)
	n := decimal.NewFromInt(int64(len(weights)))
	var allocated int64
	for i, w := range weights {
		var share decimal.Decimal
		if sum.IsZero() {
			share = t.Div(n)
		} else {
			share = t.Mul(w).Div(sum)
		}
		out[i] = RoundMinor(share)
		allocated += out[i]
	}

	rem := total - allocated
	d := DesignatedIndex(subtotals)
	if rem >= 0 {
		out[d] += rem
		return out
	}
	for ; rem < 0; rem++ {
		idx := d
		if out[idx] <= 0 {
			idx = largestIndex(out)
		}
		out[idx]--
	}
	return out
}

// DesignatedIndex returns the index of the largest subtotal. Ties go to the
// earliest index so the choice is reproducible.
func DesignatedIndex(subtotals []int64) int {
	return largestIndex(subtotals)
}

func largestIndex(values []int64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
