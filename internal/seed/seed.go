// Package seed loads demo storefronts for manual testing.
package seed

import (
	"context"
	"fmt"

	"storefront-cart/internal/domain"
)

// VendorWriter upserts vendors by slug.
type VendorWriter interface {
	Upsert(ctx context.Context, v domain.Vendor) (*domain.Vendor, error)
}

// Vendors is the demo data set. Phones are placeholders in E.164 form so handoff links
// build.
var Vendors = []domain.Vendor{
	{Slug: "demo", StoreName: "Demo Store", ContactPhone: "+1 555 010 0000"},
	{Slug: "corner-bakery", StoreName: "Corner Bakery", ContactPhone: "+1 555 010 0001"},
}

// Apply upserts the demo vendors. It is idempotent.
func Apply(ctx context.Context, vendors VendorWriter) ([]*domain.Vendor, error) {
	out := make([]*domain.Vendor, 0, len(Vendors))
	for _, v := range Vendors {
		saved, err := vendors.Upsert(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("upsert vendor %s: %w", v.Slug, err)
		}
		out = append(out, saved)
	}
	return out, nil
}
