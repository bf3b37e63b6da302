package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/notify"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/cart"
)

type stubOrders struct {
	orders    map[string]*domain.Order
	createErr error
	created   []orderrepo.CreateOrderInput
}

func newStubOrders() *stubOrders {
	return &stubOrders{orders: make(map[string]*domain.Order)}
}

func (s *stubOrders) Create(_ context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error) {
	s.created = append(s.created, in)
	if s.createErr != nil {
		return nil, s.createErr
	}
	o := &domain.Order{
		ID:          "o" + string(rune('0'+len(s.created))),
		VendorID:    in.VendorID,
		CustomerID:  in.CustomerID,
		Items:       in.Items,
		TotalCents:  domain.TotalOf(in.Items),
		Status:      domain.OrderPending,
		IsReturning: in.IsReturning,
		CreatedAt:   time.Now(),
	}
	s.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (s *stubOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrders) ListByCustomer(_ context.Context, customerID string, _ orderrepo.ListFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, confirmedAt *time.Time) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	if confirmedAt != nil {
		o.ConfirmedAt = confirmedAt
	}
	cp := *o
	return &cp, nil
}

type stubDrafts struct {
	draft     *domain.DraftCart
	deleteErr error
	deleted   []string
}

func (s *stubDrafts) Get(context.Context, string, string) (*domain.DraftCart, error) {
	return s.draft, nil
}

func (s *stubDrafts) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

type stubVendors struct{}

func (stubVendors) GetByID(_ context.Context, id string) (*domain.Vendor, error) {
	return &domain.Vendor{ID: id, StoreName: "Corner Shop", ContactPhone: "+1 555 000 1111"}, nil
}

type captureSink struct {
	events []domain.AnalyticsEvent
}

func (c *captureSink) Track(ev domain.AnalyticsEvent) { c.events = append(c.events, ev) }

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notify.Handoff) (notify.Receipt, error) {
	return notify.Receipt{}, errors.New("broker down")
}

var completeProfile = &domain.CustomerProfile{CustomerID: "c1", Name: "Ana", Phone: "555", Address: "Main 1"}

type fixture struct {
	svc    *Service
	orders *stubOrders
	drafts *stubDrafts
	sink   *captureSink
	cart   *cart.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders: newStubOrders(),
		drafts: &stubDrafts{draft: &domain.DraftCart{ID: "d1", VendorID: "v1", CustomerID: "c1"}},
		sink:   &captureSink{},
	}
	f.svc = New(Deps{
		Orders:  f.orders,
		Vendors: stubVendors{},
		Drafts:  f.drafts,
		Sink:    f.sink,
		BaseURL: "https://shop.example/",
	})
	f.cart = cart.New("v1", "c1", cart.Deps{})
	f.cart.Add(context.Background(), domain.LineItem{ProductID: "A", Name: "Widget", UnitPriceCents: 1000})
	f.cart.Add(context.Background(), domain.LineItem{ProductID: "A", Name: "Widget", UnitPriceCents: 1000})
	return f
}

func (f *fixture) input(profile *domain.CustomerProfile) Input {
	return Input{VendorID: "v1", CustomerID: "c1", Cart: f.cart, Profile: profile, Notes: " ring twice "}
}

func TestFinalize_PlacesPendingOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPending, res.Order.Status)
	assert.Equal(t, int64(2000), res.Order.TotalCents)
	assert.Equal(t, "https://shop.example/orders/"+res.Order.ID, res.Reference)
	require.Len(t, f.orders.created, 1)
	assert.Equal(t, "ring twice", f.orders.created[0].CustomerNotes)
	require.NotNil(t, f.orders.created[0].CustomerID)

	require.Len(t, f.sink.events, 1)
	created, ok := f.sink.events[0].Payload.(domain.CartCreated)
	require.True(t, ok)
	assert.Equal(t, domain.CartCreated{OrderID: res.Order.ID, ItemCount: 2, TotalCents: 2000}, created)

	assert.True(t, f.cart.Snapshot().IsEmpty())
	assert.Equal(t, []string{"d1"}, f.drafts.deleted)

	require.True(t, strings.HasPrefix(res.HandoffURL, "https://wa.me/15550001111?text="))
	u, err := url.Parse(res.HandoffURL)
	require.NoError(t, err)
	assert.Contains(t, u.Query().Get("text"), res.Reference)
}

func TestFinalize_MissingPhoneIsValidationError(t *testing.T) {
	f := newFixture(t)
	profile := *completeProfile
	profile.Phone = "   "

	_, err := f.svc.Finalize(context.Background(), f.input(&profile))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"phone"}, verr.Fields)

	assert.Empty(t, f.orders.created, "no order created")
	assert.Empty(t, f.sink.events, "no telemetry emitted")
	assert.False(t, f.cart.Snapshot().IsEmpty())
}

func TestFinalize_MissingProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Finalize(context.Background(), f.input(nil))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"name", "phone", "address"}, verr.Fields)
}

func TestFinalize_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.cart.Clear(context.Background())

	_, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Empty(t, f.orders.created)
}

func TestFinalize_CreateFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	f.orders.createErr = errors.New("connection reset")

	_, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create order", perr.Op)
	assert.Empty(t, f.sink.events)
	assert.False(t, f.cart.Snapshot().IsEmpty(), "cart kept for retry")
}

func TestFinalize_BestEffortStepsDoNotFail(t *testing.T) {
	f := newFixture(t)
	f.drafts.deleteErr = errors.New("down")
	f.svc.notifier = failingNotifier{}

	res, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	require.NoError(t, err)
	assert.Empty(t, res.HandoffURL)
	assert.True(t, f.cart.Snapshot().IsEmpty())
}

func TestFinalize_RepeatCreatesNewOrder(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	require.NoError(t, err)

	f.cart.Add(context.Background(), domain.LineItem{ProductID: "B", UnitPriceCents: 300})
	second, err := f.svc.Finalize(context.Background(), f.input(completeProfile))
	require.NoError(t, err)

	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, int64(2000), f.orders.orders[first.Order.ID].TotalCents)
}

func TestSetStatus_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Finalize(ctx, f.input(completeProfile))
	require.NoError(t, err)
	f.sink.events = nil

	o, err := f.svc.SetStatus(ctx, res.Order.ID, domain.OrderReviewing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderReviewing, o.Status)
	assert.Nil(t, o.ConfirmedAt)

	o, err = f.svc.SetStatus(ctx, res.Order.ID, domain.OrderConfirmed)
	require.NoError(t, err)
	require.NotNil(t, o.ConfirmedAt)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, domain.KindCartConfirmed, f.sink.events[0].Kind())

	_, err = f.svc.SetStatus(ctx, res.Order.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.SetStatus(ctx, res.Order.ID, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.SetStatus(ctx, "missing", domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandoffLink_RecordsClick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Finalize(ctx, f.input(completeProfile))
	require.NoError(t, err)
	f.sink.events = nil

	link, err := f.svc.HandoffLink(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.HandoffURL, link)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, domain.WhatsAppClick{OrderID: res.Order.ID}, f.sink.events[0].Payload)

	_, err = f.svc.HandoffLink(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Finalize(ctx, f.input(completeProfile))
	require.NoError(t, err)

	orders, err := f.svc.ListOrders(ctx, "c1", orderrepo.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = f.svc.ListOrders(ctx, "", orderrepo.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}
