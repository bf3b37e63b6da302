// Package notify hands a placed order over to the vendor.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront-cart/internal/domain"
)

// Handoff is the prepared order summary a vendor receives.
type Handoff struct {
	VendorID       string            `json:"vendorId"`
	OrderID        string            `json:"orderId"`
	StoreName      string            `json:"storeName"`
	ContactAddress string            `json:"contactAddress"`
	Items          []domain.LineItem `json:"items"`
	TotalCents     int64             `json:"totalCents"`
	Reference      string            `json:"reference"`
}

// Receipt describes where a handoff went. URL is set by channels the shopper opens
// themselves.
type Receipt struct {
	Channel string
	URL     string
}

type Notifier interface {
	Notify(ctx context.Context, h Handoff) (Receipt, error)
}

// Summary renders the handoff as the plain-text message sent to the vendor.
func Summary(h Handoff) string {
	var b strings.Builder
	if h.StoreName != "" {
		fmt.Fprintf(&b, "Hello %s, I'd like to place an order:\n", h.StoreName)
	} else {
		b.WriteString("Hello, I'd like to place an order:\n")
	}
	for _, it := range h.Items {
		fmt.Fprintf(&b, "- %d x %s (%s)\n", it.Quantity, it.Name, Money(it.UnitPriceCents*int64(it.Quantity)))
	}
	fmt.Fprintf(&b, "Total: %s\n", Money(h.TotalCents))
	if h.Reference != "" {
		fmt.Fprintf(&b, "Order: %s", h.Reference)
	}
	return strings.TrimRight(b.String(), "\n")
}

func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

var errNoContact = errors.New("vendor has no contact phone")

// WhatsAppLink composes a wa.me link that opens a chat with the vendor, prefilled with
// the order summary.
type WhatsAppLink struct{}

func (WhatsAppLink) Notify(_ context.Context, h Handoff) (Receipt, error) {
	link, err := WhatsAppURL(h)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Channel: "whatsapp", URL: link}, nil
}

func WhatsAppURL(h Handoff) (string, error) {
	phone := digits(h.ContactAddress)
	if phone == "" {
		return "", errNoContact
	}
	text := strings.ReplaceAll(url.QueryEscape(Summary(h)), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + text, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Multi fans a handoff out to every notifier. The first receipt carrying a URL wins; all
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, h Handoff) (Receipt, error) {
	var (
		out  Receipt
		errs []error
	)
	for _, n := range m {
		if n == nil {
			continue
		}
		r, err := n.Notify(ctx, h)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if out.URL == "" && r.URL != "" {
			out = r
		} else if out.Channel == "" {
			out.Channel = r.Channel
		}
	}
	return out, errors.Join(errs...)
}
