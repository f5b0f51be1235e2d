package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrVendorNotFound is returned by a VendorDirectory when the id is unknown.
var ErrVendorNotFound = errors.New("vendor not found")

// Vendor is what the engine needs to know about a vendor at split time.
type Vendor struct {
	ID                 string
	Name               string
	Tier               string
	CommissionOverride decimal.NullDecimal
	TierDefaultRate    decimal.NullDecimal
}

// CommissionRate returns the override when present, else the tier default,
// else fallback.
func (v Vendor) CommissionRate(fallback decimal.Decimal) decimal.Decimal {
	if v.CommissionOverride.Valid {
		return v.CommissionOverride.Decimal
	}
	if v.TierDefaultRate.Valid {
		return v.TierDefaultRate.Decimal
	}
	return fallback
}

// VendorDirectory is a read-only lookup of vendor identity and commission terms.
type VendorDirectory interface {
	ResolveVendor(ctx context.Context, vendorID string) (Vendor, error)
}

// ProductCatalog reports per-unit product weight. ok is false when the
// catalog has no weight for the product.
type ProductCatalog interface {
	Weight(ctx context.Context, productID string) (weight decimal.Decimal, ok bool, err error)
}
