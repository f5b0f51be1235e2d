package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/cache"
)

const cacheOperation = "vendor"

// vendorRecord is the cached JSON form of a vendor. Rates travel as strings
// so no precision is lost.
type vendorRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tier     string `json:"tier,omitempty"`
	Override string `json:"override,omitempty"`
	TierRate string `json:"tier_rate,omitempty"`
}

// Cached is a read-through cache in front of another directory. Cache
// failures are logged and the lookup falls through; unknown vendors are not
// cached.
type Cached struct {
	next   ports.VendorDirectory
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next ports.VendorDirectory, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *Cached) ResolveVendor(ctx context.Context, vendorID string) (ports.Vendor, error) {
	key := c.cache.GenerateKey(cacheOperation, vendorID)

	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "vendor cache read failed", "vendor_id", vendorID, "error", err)
	}
	if raw != "" {
		if v, err := decodeVendor(raw); err == nil {
			return v, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed vendor cache entry", "vendor_id", vendorID)
	}

	v, err := c.next.ResolveVendor(ctx, vendorID)
	if err != nil {
		return v, err
	}

	encoded, err := encodeVendor(v)
	if err == nil {
		err = c.cache.Set(ctx, key, encoded, c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "vendor cache write failed", "vendor_id", vendorID, "error", err)
	}
	return v, nil
}

// Invalidate drops a cached vendor so the next lookup reads through.
func (c *Cached) Invalidate(ctx context.Context, vendorID string) error {
	return c.cache.Delete(ctx, c.cache.GenerateKey(cacheOperation, vendorID))
}

func encodeVendor(v ports.Vendor) (string, error) {
	rec := vendorRecord{ID: v.ID, Name: v.Name, Tier: v.Tier}
	if v.CommissionOverride.Valid {
		rec.Override = v.CommissionOverride.Decimal.String()
	}
	if v.TierDefaultRate.Valid {
		rec.TierRate = v.TierDefaultRate.Decimal.String()
	}
	b, err := json.Marshal(rec)
	return string(b), err
}

func decodeVendor(raw string) (ports.Vendor, error) {
	var rec vendorRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return ports.Vendor{}, err
	}
	v := ports.Vendor{ID: rec.ID, Name: rec.Name, Tier: rec.Tier}
	if rec.Override != "" {
		d, err := decimal.NewFromString(rec.Override)
		if err != nil {
			return ports.Vendor{}, err
		}
		v.CommissionOverride = decimal.NewNullDecimal(d)
	}
	if rec.TierRate != "" {
		d, err := decimal.NewFromString(rec.TierRate)
		if err != nil {
			return ports.Vendor{}, err
		}
		v.TierDefaultRate = decimal.NewNullDecimal(d)
	}
	return v, nil
}
