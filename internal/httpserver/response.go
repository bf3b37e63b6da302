package httpserver

import (
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/recovery"
)

type cartResponse struct {
	VendorID   string            `json:"vendorId"`
	Items      []domain.LineItem `json:"items"`
	TotalCents int64             `json:"totalCents"`
	ItemCount  int               `json:"itemCount"`
}

func toCartResponse(c domain.LocalCart) cartResponse {
	items := c.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return cartResponse{
		VendorID:   c.VendorID,
		Items:      items,
		TotalCents: c.Total(),
		ItemCount:  c.ItemCount(),
	}
}

type draftResponse struct {
	ID         string            `json:"id"`
	Items      []domain.LineItem `json:"items"`
	TotalCents int64             `json:"totalCents"`
	ItemCount  int               `json:"itemCount"`
}

type recoveryResponse struct {
	State recovery.State `json:"state"`
	Draft *draftResponse `json:"draft,omitempty"`
}

func toRecoveryResponse(n *recovery.Negotiator) recoveryResponse {
	out := recoveryResponse{State: n.State()}
	if d := n.Draft(); d != nil {
		out.Draft = &draftResponse{
			ID:         d.ID,
			Items:      d.Items,
			TotalCents: domain.TotalOf(d.Items),
			ItemCount:  d.ItemCount(),
		}
	}
	return out
}

type sessionResponse struct {
	CustomerID string           `json:"customerId"`
	Vendor     vendorResponse   `json:"vendor"`
	Cart       cartResponse     `json:"cart"`
	Recovery   recoveryResponse `json:"recovery"`
}

type vendorResponse struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	StoreName string `json:"storeName"`
}

func toVendorResponse(v *domain.Vendor) vendorResponse {
	return vendorResponse{ID: v.ID, Slug: v.Slug, StoreName: v.StoreName}
}

type addItemRequest struct {
	ProductID      string `json:"productId" binding:"required"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents" binding:"gte=0"`
	ImageURL       string `json:"imageUrl"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type checkoutRequest struct {
	Notes string `json:"notes"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type eventRequest struct {
	Kind        domain.EventKind `json:"kind"`
	ProductID   string           `json:"productId"`
	ProductName string           `json:"productName"`
	OrderID     string           `json:"orderId"`
}

// payload maps a storefront-reported event to its typed variant. Kinds the server emits
// itself are rejected.
func (r eventRequest) payload() (domain.EventPayload, bool) {
	switch r.Kind {
	case domain.KindStoreView:
		return domain.StoreView{}, true
	case domain.KindProductClick:
		if r.ProductID == "" {
			return nil, false
		}
		return domain.ProductClick{ProductID: r.ProductID, ProductName: r.ProductName}, true
	case domain.KindWhatsAppClick:
		return domain.WhatsAppClick{OrderID: r.OrderID}, true
	default:
		return nil, false
	}
}
