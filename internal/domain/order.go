package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderReviewing OrderStatus = "reviewing"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderReviewing, OrderConfirmed, OrderCancelled:
		return true
	}
	return false
}

// Order is a submitted cart. Only Status, VendorNotes and ConfirmedAt change after creation.
type Order struct {
	ID            string      `json:"id"`
	VendorID      string      `json:"vendorId"`
	CustomerID    *string     `json:"customerId,omitempty"`
	Items         []LineItem  `json:"items"`
	TotalCents    int64       `json:"totalCents"`
	Status        OrderStatus `json:"status"`
	IsReturning   bool        `json:"isReturning"`
	CustomerNotes string      `json:"customerNotes,omitempty"`
	VendorNotes   string      `json:"vendorNotes,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	ConfirmedAt   *time.Time  `json:"confirmedAt,omitempty"`
}

func (o Order) ItemCount() int {
	return ItemCountOf(o.Items)
}
