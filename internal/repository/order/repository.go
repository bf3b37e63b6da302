package order

import (
	"context"
	"time"

	"storefront-cart/internal/domain"
)

type CreateOrderInput struct {
	VendorID      string
	CustomerID    *string
	Items         []domain.LineItem
	IsReturning   bool
	CustomerNotes string
}

// ListFilter narrows ListByCustomer. Zero values are ignored.
type ListFilter struct {
	VendorID string
	Status   domain.OrderStatus
	Limit    uint64
	Offset   uint64
}

type Repository interface {
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, filter ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, confirmedAt *time.Time) (*domain.Order, error)
}
