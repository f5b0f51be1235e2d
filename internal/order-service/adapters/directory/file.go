// Package directory resolves vendors and product weights for the splitter.
// The static implementation reads a YAML file; Cached puts Redis in front of
// any VendorDirectory.
package directory

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
)

var (
	_ ports.VendorDirectory = (*Static)(nil)
	_ ports.ProductCatalog  = (*Static)(nil)
)

// File is the YAML layout of the directory file:
//
//	tiers:
//	  gold: "0.08"
//	vendors:
//	  - id: v-alpha
//	    name: Alpha Home
//	    tier: gold
//	  - id: v-beta
//	    name: Beta Crafts
//	    commission_rate: "0.15"
//	products:
//	  - id: kettle
//	    weight: "1.25"
type File struct {
	Tiers    map[string]string `yaml:"tiers"`
	Vendors  []VendorEntry     `yaml:"vendors"`
	Products []ProductEntry    `yaml:"products"`
}

type VendorEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Tier string `yaml:"tier,omitempty"`
	// CommissionRate overrides the tier default when set.
	CommissionRate string `yaml:"commission_rate,omitempty"`
}

type ProductEntry struct {
	ID     string `yaml:"id"`
	Weight string `yaml:"weight"`
}

// Static is an in-memory directory and catalog. It is read-only after Load.
type Static struct {
	vendors map[string]ports.Vendor
	weights map[string]decimal.Decimal
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load vendor directory %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load vendor directory %q: %w", path, err)
	}
	return s, nil
}

// Parse builds a Static directory from YAML.
func Parse(data []byte) (*Static, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	return FromFile(f)
}

// FromFile validates f. Rates must be fractions in [0, 1] and weights must
// not be negative.
func FromFile(f File) (*Static, error) {
	tiers := make(map[string]decimal.Decimal, len(f.Tiers))
	for name, raw := range f.Tiers {
		rate, err := parseRate(raw)
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", name, err)
		}
		tiers[name] = rate
	}

	s := &Static{
		vendors: make(map[string]ports.Vendor, len(f.Vendors)),
		weights: make(map[string]decimal.Decimal, len(f.Products)),
	}
	for _, v := range f.Vendors {
		if v.ID == "" {
			return nil, fmt.Errorf("vendor without id")
		}
		if _, dup := s.vendors[v.ID]; dup {
			return nil, fmt.Errorf("vendor %q listed twice", v.ID)
		}
		vendor := ports.Vendor{ID: v.ID, Name: v.Name, Tier: v.Tier}
		if v.Tier != "" {
			rate, ok := tiers[v.Tier]
			if !ok {
				return nil, fmt.Errorf("vendor %q: unknown tier %q", v.ID, v.Tier)
			}
			vendor.TierDefaultRate = decimal.NewNullDecimal(rate)
		}
		if v.CommissionRate != "" {
			rate, err := parseRate(v.CommissionRate)
			if err != nil {
				return nil, fmt.Errorf("vendor %q: %w", v.ID, err)
			}
			vendor.CommissionOverride = decimal.NewNullDecimal(rate)
		}
		s.vendors[v.ID] = vendor
	}

	for _, p := range f.Products {
		w, err := decimal.NewFromString(p.Weight)
		if err != nil {
			return nil, fmt.Errorf("product %q: weight %q: %w", p.ID, p.Weight, err)
		}
		if w.IsNegative() {
			return nil, fmt.Errorf("product %q: negative weight", p.ID)
		}
		s.weights[p.ID] = w
	}
	return s, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate %q: %w", raw, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %s outside [0, 1]", rate)
	}
	return rate, nil
}

func (s *Static) ResolveVendor(_ context.Context, vendorID string) (ports.Vendor, error) {
	v, ok := s.vendors[vendorID]
	if !ok {
		return ports.Vendor{}, fmt.Errorf("%w: %s", ports.ErrVendorNotFound, vendorID)
	}
	return v, nil
}

// Weight reports the per-unit weight of a product. Products listed with a
// zero weight count as unknown.
func (s *Static) Weight(_ context.Context, productID string) (decimal.Decimal, bool, error) {
	w, ok := s.weights[productID]
	if !ok || w.IsZero() {
		return decimal.Zero, false, nil
	}
	return w, true, nil
}

// Vendors returns the number of vendors loaded.
func (s *Static) Vendors() int { return len(s.vendors) }
