// Package testutil holds helpers shared by Postgres integration tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/migrate"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table. The test
// is skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE analytics_events, orders, draft_carts, customer_profiles, vendors RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

// Vendor inserts a vendor row and returns its id.
func Vendor(t *testing.T, pool *pgxpool.Pool, slug string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO vendors (slug, store_name, contact_phone) VALUES ($1, $2, '15550001111') RETURNING id::text`,
		slug, "Store "+slug,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert vendor: %v", err)
	}
	return id
}
