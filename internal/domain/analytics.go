package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	KindStoreView     EventKind = "store_view"
	KindProductClick  EventKind = "product_click"
	KindCartCreated   EventKind = "cart_created"
	KindCartConfirmed EventKind = "cart_confirmed"
	KindWhatsAppClick EventKind = "whatsapp_click"
)

// EventPayload is implemented by one struct per event kind so every payload shape is fixed.
type EventPayload interface {
	Kind() EventKind
	isEventPayload()
}

type StoreView struct{}

type ProductClick struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
}

type CartCreated struct {
	OrderID    string `json:"cartId"`
	ItemCount  int    `json:"itemCount"`
	TotalCents int64  `json:"total"`
}

type CartConfirmed struct {
	OrderID string `json:"cartId"`
}

type WhatsAppClick struct {
	OrderID string `json:"cartId,omitempty"`
}

func (StoreView) Kind() EventKind     { return KindStoreView }
func (ProductClick) Kind() EventKind  { return KindProductClick }
func (CartCreated) Kind() EventKind   { return KindCartCreated }
func (CartConfirmed) Kind() EventKind { return KindCartConfirmed }
func (WhatsAppClick) Kind() EventKind { return KindWhatsAppClick }

func (StoreView) isEventPayload()     {}
func (ProductClick) isEventPayload()  {}
func (CartCreated) isEventPayload()   {}
func (CartConfirmed) isEventPayload() {}
func (WhatsAppClick) isEventPayload() {}

// AnalyticsEvent is a write-once usage event for a vendor storefront.
type AnalyticsEvent struct {
	VendorID  string
	Payload   EventPayload
	CreatedAt time.Time
}

func NewEvent(vendorID string, payload EventPayload) AnalyticsEvent {
	return AnalyticsEvent{VendorID: vendorID, Payload: payload, CreatedAt: time.Now().UTC()}
}

func (e AnalyticsEvent) Kind() EventKind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Metadata encodes the payload fields as a JSON object.
func (e AnalyticsEvent) Metadata() ([]byte, error) {
	if e.Payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Payload)
}

// DecodePayload rebuilds the typed payload for kind from its JSON metadata.
func DecodePayload(kind EventKind, metadata []byte) (EventPayload, error) {
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	var (
		payload EventPayload
		err     error
	)
	switch kind {
	case KindStoreView:
		payload = StoreView{}
	case KindProductClick:
		var p ProductClick
		err = json.Unmarshal(metadata, &p)
		payload = p
	case KindCartCreated:
		var p CartCreated
		err = json.Unmarshal(metadata, &p)
		payload = p
	case KindCartConfirmed:
		var p CartConfirmed
		err = json.Unmarshal(metadata, &p)
		payload = p
	case KindWhatsAppClick:
		var p WhatsAppClick
		err = json.Unmarshal(metadata, &p)
		payload = p
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
