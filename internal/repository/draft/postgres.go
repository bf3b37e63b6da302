package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/domain"
)

const draftColumns = `id::text, vendor_id::text, customer_id, status, items, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by the draft_carts table.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, vendorID, customerID string) (*domain.DraftCart, error) {
	const q = `
SELECT ` + draftColumns + `
FROM draft_carts
WHERE vendor_id = $1 AND customer_id = $2 AND status = 'draft'
ORDER BY updated_at DESC
LIMIT 1
`
	return r.scanDraft(r.pool.QueryRow(ctx, q, vendorID, customerID))
}

func (r *postgresRepo) Create(ctx context.Context, vendorID, customerID string, items []domain.LineItem) (*domain.DraftCart, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO draft_carts (vendor_id, customer_id, status, items)
VALUES ($1, $2, 'draft', $3)
RETURNING ` + draftColumns
	return r.scanDraft(r.pool.QueryRow(ctx, q, vendorID, customerID, itemsJSON))
}

func (r *postgresRepo) UpdateItems(ctx context.Context, id string, items []domain.LineItem) (*domain.DraftCart, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	const q = `
UPDATE draft_carts
SET items = $1, updated_at = now()
WHERE id = $2 AND status = 'draft'
RETURNING ` + draftColumns
	return r.scanDraft(r.pool.QueryRow(ctx, q, itemsJSON, id))
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM draft_carts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanDraft(row pgx.Row) (*domain.DraftCart, error) {
	var d domain.DraftCart
	var itemsJSON []byte
	err := row.Scan(&d.ID, &d.VendorID, &d.CustomerID, &d.Status, &itemsJSON, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrConflict
		}
		r.logger.Error("draft repo: scan", "err", err)
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &d.Items); err != nil {
			r.logger.Error("draft repo: decode items", "draft_id", d.ID, "err", err)
			return nil, err
		}
	}
	return &d, nil
}
