package profile

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository persists customer profiles keyed by anonymous customer id.
type Repository interface {
	Get(ctx context.Context, customerID string) (*domain.CustomerProfile, error)
	Upsert(ctx context.Context, customerID string, fields domain.ProfileFields) (*domain.CustomerProfile, error)
}
