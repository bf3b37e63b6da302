package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/testutil"
)

func TestPostgres_CreateGetList(t *testing.T) {
	ctx := context.Background()
	pool := testutil.Pool(t)
	vendorID := testutil.Vendor(t, pool, "shop")
	repo := NewPostgres(pool, nil)

	customer := "cust-1"
	created, err := repo.Create(ctx, CreateOrderInput{
		VendorID:   vendorID,
		CustomerID: &customer,
		Items:      []domain.LineItem{{ProductID: "A", UnitPriceCents: 1000, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != domain.OrderPending || created.TotalCents != 2000 {
		t.Fatalf("unexpected order %+v", created)
	}

	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil || fetched.ID != created.ID || len(fetched.Items) != 1 {
		t.Fatalf("GetByID: %+v %v", fetched, err)
	}
	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}

	list, err := repo.ListByCustomer(ctx, customer, ListFilter{VendorID: vendorID, Limit: 10})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByCustomer: %d %v", len(list), err)
	}

	now := time.Now().UTC()
	confirmed, err := repo.UpdateStatus(ctx, created.ID, domain.OrderConfirmed, &now)
	if err != nil || confirmed.Status != domain.OrderConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("UpdateStatus: %+v %v", confirmed, err)
	}
}

func TestPostgres_CreateRejectsEmptyCart(t *testing.T) {
	pool := testutil.Pool(t)
	repo := NewPostgres(pool, nil)
	if _, err := repo.Create(context.Background(), CreateOrderInput{VendorID: "x"}); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}
