package profile

import (
	"context"
	"errors"
	"testing"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/testutil"
)

func TestPostgres_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testutil.Pool(t), nil)

	if _, err := repo.Get(ctx, "cust"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	first, err := repo.Upsert(ctx, "cust", domain.ProfileFields{Name: "Ana", Phone: "1", Address: "Main St"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, "cust", domain.ProfileFields{Name: "Ana", Phone: "2", Address: "Main St"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if second.Phone != "2" || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected update in place, got %+v", second)
	}
}
