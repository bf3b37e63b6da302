package domain

import "time"

// Vendor is the storefront owner an order is handed off to.
type Vendor struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	StoreName    string    `json:"storeName"`
	ContactPhone string    `json:"contactPhone"`
	CreatedAt    time.Time `json:"createdAt"`
}
