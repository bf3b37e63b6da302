package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Insert(ctx context.Context, event domain.AnalyticsEvent) error {
	meta, err := event.Metadata()
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	const q = `
INSERT INTO analytics_events (vendor_id, kind, metadata, created_at)
VALUES ($1, $2, $3, $4)
`
	_, err = r.pool.Exec(ctx, q, event.VendorID, string(event.Kind()), meta, event.CreatedAt)
	return err
}
