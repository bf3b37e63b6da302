package domain

import "time"

const DraftStatus = "draft"

// DraftCart is the durable snapshot of an in-progress cart keyed by (vendor, customer).
type DraftCart struct {
	ID         string     `json:"id"`
	VendorID   string     `json:"vendorId"`
	CustomerID string     `json:"customerId"`
	Status     string     `json:"status"`
	Items      []LineItem `json:"items"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (d DraftCart) ItemCount() int {
	return ItemCountOf(d.Items)
}
