package domain

import "time"

// CustomerProfile stores delivery contact details for an anonymous customer id.
type CustomerProfile struct {
	CustomerID string    `json:"customerId"`
	Name       string    `json:"name" validate:"required"`
	Phone      string    `json:"phone" validate:"required"`
	Address    string    `json:"address" validate:"required"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProfileFields is the mutable part of a profile submitted by the shopper.
type ProfileFields struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
