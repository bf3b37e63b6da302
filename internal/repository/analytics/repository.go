package analytics

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository appends analytics events. Events are never read back by the storefront.
type Repository interface {
	Insert(ctx context.Context, event domain.AnalyticsEvent) error
}
