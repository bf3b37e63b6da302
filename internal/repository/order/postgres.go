package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/domain"
)

const orderColumns = `id::text, vendor_id::text, customer_id, items, total_cents, status, is_returning,
       customer_notes, vendor_notes, created_at, confirmed_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by the orders table.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO orders (vendor_id, customer_id, items, total_cents, status, is_returning, customer_notes)
VALUES ($1, $2, $3, $4, 'pending', $5, $6)
RETURNING ` + orderColumns
	return r.scanOrder(r.pool.QueryRow(ctx, q,
		in.VendorID,
		in.CustomerID,
		itemsJSON,
		domain.TotalOf(in.Items),
		in.IsReturning,
		in.CustomerNotes,
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`
	return r.scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string, filter ListFilter) ([]domain.Order, error) {
	builder := psql.Select(orderColumns).
		From("orders").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC")
	if filter.VendorID != "" {
		builder = builder.Where(sq.Eq{"vendor_id": filter.VendorID})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	q, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build orders query: %w", err)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, confirmedAt *time.Time) (*domain.Order, error) {
	const q = `
UPDATE orders
SET status = $1, confirmed_at = COALESCE($2, confirmed_at)
WHERE id = $3
RETURNING ` + orderColumns
	return r.scanOrder(r.pool.QueryRow(ctx, q, string(status), confirmedAt, id))
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID,
		&o.VendorID,
		&o.CustomerID,
		&itemsJSON,
		&o.TotalCents,
		&status,
		&o.IsReturning,
		&o.CustomerNotes,
		&o.VendorNotes,
		&o.CreatedAt,
		&o.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		// malformed uuid in the lookup key
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("order repo: scan", "err", err)
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		r.logger.Error("order repo: decode items", "order_id", o.ID, "err", err)
		return nil, err
	}
	return &o, nil
}
