package draft

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository persists draft carts. Get returns domain.ErrNotFound when the pair has no
// live draft; Create returns domain.ErrConflict when one was created concurrently.
type Repository interface {
	Get(ctx context.Context, vendorID, customerID string) (*domain.DraftCart, error)
	Create(ctx context.Context, vendorID, customerID string, items []domain.LineItem) (*domain.DraftCart, error)
	UpdateItems(ctx context.Context, id string, items []domain.LineItem) (*domain.DraftCart, error)
	Delete(ctx context.Context, id string) error
}
