// Package checkout turns a local cart into an order and hands it to the vendor. It also
// owns the order status lifecycle after placement.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/notify"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/telemetry"
)

// ErrInvalidStatus is returned for an unknown status or a transition the lifecycle forbids.
var ErrInvalidStatus = errors.New("invalid order status transition")

// Cart is the local cart being checked out.
type Cart interface {
	Snapshot() domain.LocalCart
	Clear(ctx context.Context) domain.LocalCart
}

// Drafts finds and removes the draft mirrored from the cart. Get returns nil when there
// is none.
type Drafts interface {
	Get(ctx context.Context, vendorID, customerID string) (*domain.DraftCart, error)
	Delete(ctx context.Context, draftID string) error
}

type Vendors interface {
	GetByID(ctx context.Context, id string) (*domain.Vendor, error)
}

type Deps struct {
	Orders   orderrepo.Repository
	Vendors  Vendors
	Drafts   Drafts
	Sink     telemetry.Sink
	Notifier notify.Notifier
	// BaseURL prefixes shareable order references.
	BaseURL string
	Logger  *slog.Logger
}

type Service struct {
	orders   orderrepo.Repository
	vendors  Vendors
	drafts   Drafts
	sink     telemetry.Sink
	notifier notify.Notifier
	baseURL  string
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
}

func New(deps Deps) *Service {
	if deps.Sink == nil {
		deps.Sink = telemetry.Discard
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.WhatsAppLink{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Service{
		orders:   deps.Orders,
		vendors:  deps.Vendors,
		drafts:   deps.Drafts,
		sink:     deps.Sink,
		notifier: deps.Notifier,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
		logger:   deps.Logger,
		validate: v,
		tracer:   otel.Tracer("storefront-cart/checkout"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Input struct {
	VendorID   string
	CustomerID string
	Cart       Cart
	Profile    *domain.CustomerProfile
	Notes      string
	Returning  bool
}

type Result struct {
	Order *domain.Order `json:"order"`
	// Reference is the shareable link to the order.
	Reference string `json:"reference"`
	// HandoffURL is opened by the shopper to reach the vendor, when the channel has one.
	HandoffURL string `json:"handoffUrl,omitempty"`
}

// Finalize places an order for the cart. Only order creation can fail after validation;
// clearing the cart, deleting the draft and notifying the vendor are best effort.
func (s *Service) Finalize(ctx context.Context, in Input) (_ *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.finalize", trace.WithAttributes(
		attribute.String("vendor.id", in.VendorID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if in.Cart == nil {
		return nil, domain.ErrEmptyCart
	}
	cart := in.Cart.Snapshot()
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	if err := s.checkProfile(in.Profile); err != nil {
		return nil, err
	}

	var customerID *string
	if in.CustomerID != "" {
		customerID = &in.CustomerID
	}
	order, err := s.orders.Create(ctx, orderrepo.CreateOrderInput{
		VendorID:      in.VendorID,
		CustomerID:    customerID,
		Items:         cart.Items,
		IsReturning:   in.Returning,
		CustomerNotes: strings.TrimSpace(in.Notes),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "create order", Err: err}
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	s.sink.Track(domain.NewEvent(in.VendorID, domain.CartCreated{
		OrderID:    order.ID,
		ItemCount:  order.ItemCount(),
		TotalCents: order.TotalCents,
	}))

	res := &Result{Order: order, Reference: s.Reference(order.ID)}

	in.Cart.Clear(ctx)
	s.deleteDraft(ctx, in.VendorID, in.CustomerID)

	receipt, err := s.notifier.Notify(ctx, s.handoff(ctx, order, res.Reference))
	if err != nil {
		s.logger.Warn("checkout: vendor handoff failed", "order_id", order.ID, "err", err)
	}
	res.HandoffURL = receipt.URL

	s.logger.Info("order placed",
		"order_id", order.ID,
		"vendor_id", in.VendorID,
		"items", order.ItemCount(),
		"total_cents", order.TotalCents,
		"returning", in.Returning,
	)
	return res, nil
}

// checkProfile returns a ValidationError naming every blank contact field.
func (s *Service) checkProfile(p *domain.CustomerProfile) error {
	if p == nil {
		return &domain.ValidationError{Fields: []string{"name", "phone", "address"}}
	}
	trimmed := *p
	trimmed.Name = strings.TrimSpace(p.Name)
	trimmed.Phone = strings.TrimSpace(p.Phone)
	trimmed.Address = strings.TrimSpace(p.Address)

	err := s.validate.Struct(trimmed)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &domain.ValidationError{Fields: fields}
}

func (s *Service) deleteDraft(ctx context.Context, vendorID, customerID string) {
	if s.drafts == nil || customerID == "" {
		return
	}
	d, err := s.drafts.Get(ctx, vendorID, customerID)
	if err != nil {
		s.logger.Warn("checkout: draft lookup failed", "vendor_id", vendorID, "err", err)
		return
	}
	if d == nil {
		return
	}
	if err := s.drafts.Delete(ctx, d.ID); err != nil {
		s.logger.Warn("checkout: draft delete failed", "draft_id", d.ID, "err", err)
	}
}

// Reference is the shareable link for an order id.
func (s *Service) Reference(orderID string) string {
	return s.baseURL + "/orders/" + orderID
}

func (s *Service) handoff(ctx context.Context, order *domain.Order, reference string) notify.Handoff {
	h := notify.Handoff{
		VendorID:   order.VendorID,
		OrderID:    order.ID,
		Items:      order.Items,
		TotalCents: order.TotalCents,
		Reference:  reference,
	}
	if s.vendors == nil {
		return h
	}
	v, err := s.vendors.GetByID(ctx, order.VendorID)
	if err != nil {
		s.logger.Warn("checkout: vendor lookup failed", "vendor_id", order.VendorID, "err", err)
		return h
	}
	h.StoreName = v.StoreName
	h.ContactAddress = v.ContactPhone
	return h
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, customerID string, filter orderrepo.ListFilter) ([]domain.Order, error) {
	if customerID == "" {
		return nil, nil
	}
	return s.orders.ListByCustomer(ctx, customerID, filter)
}

// HandoffLink composes the vendor chat link for a placed order and records the click.
func (s *Service) HandoffLink(ctx context.Context, orderID string) (string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	link, err := notify.WhatsAppURL(s.handoff(ctx, order, s.Reference(order.ID)))
	if err != nil {
		return "", err
	}
	s.sink.Track(domain.NewEvent(order.VendorID, domain.WhatsAppClick{OrderID: order.ID}))
	return link, nil
}

var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:   {domain.OrderReviewing, domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderReviewing: {domain.OrderConfirmed, domain.OrderCancelled},
}

func allowed(from, to domain.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetStatus moves an order along its lifecycle. Confirming stamps the confirmation time
// and records a cart_confirmed event.
func (s *Service) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !allowed(order.Status, status) {
		return nil, ErrInvalidStatus
	}

	var confirmedAt *time.Time
	if status == domain.OrderConfirmed {
		now := s.now()
		confirmedAt = &now
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, status, confirmedAt)
	if err != nil {
		return nil, err
	}
	if status == domain.OrderConfirmed {
		s.sink.Track(domain.NewEvent(updated.VendorID, domain.CartConfirmed{OrderID: updated.ID}))
	}
	return updated, nil
}
