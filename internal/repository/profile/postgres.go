package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by the customer_profiles table.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, customerID string) (*domain.CustomerProfile, error) {
	const q = `
SELECT customer_id, name, phone, address, created_at, updated_at
FROM customer_profiles
WHERE customer_id = $1
`
	return r.scanProfile(r.pool.QueryRow(ctx, q, customerID))
}

func (r *postgresRepo) Upsert(ctx context.Context, customerID string, fields domain.ProfileFields) (*domain.CustomerProfile, error) {
	const q = `
INSERT INTO customer_profiles (customer_id, name, phone, address)
VALUES ($1, $2, $3, $4)
ON CONFLICT (customer_id) DO UPDATE
SET name = EXCLUDED.name,
    phone = EXCLUDED.phone,
    address = EXCLUDED.address,
    updated_at = now()
RETURNING customer_id, name, phone, address, created_at, updated_at
`
	return r.scanProfile(r.pool.QueryRow(ctx, q, customerID, fields.Name, fields.Phone, fields.Address))
}

func (r *postgresRepo) scanProfile(row pgx.Row) (*domain.CustomerProfile, error) {
	var p domain.CustomerProfile
	if err := row.Scan(&p.CustomerID, &p.Name, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("profile repo: scan", "err", err)
		return nil, err
	}
	return &p, nil
}
