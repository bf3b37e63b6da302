// Package cart keeps one shopper's cart for one vendor, mirrors every change into device
// storage and feeds the draft synchronizer and telemetry.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/telemetry"
)

// Scheduler receives the latest items after every mutation. Schedule is called with the
// cart locked and must not block.
type Scheduler interface {
	Schedule(vendorID, customerID string, items []domain.LineItem)
}

// SnapshotKey is the device storage key of the cart snapshot for a vendor.
func SnapshotKey(vendorID string) string {
	return "cart:" + vendorID
}

type Deps struct {
	Device    devicestore.Store
	Scheduler Scheduler
	Sink      telemetry.Sink
	Logger    *slog.Logger
}

// Store is the mutex-guarded local cart of a single (vendor, customer) pair.
type Store struct {
	mu         sync.Mutex
	vendorID   string
	customerID string
	cart       domain.LocalCart

	device    devicestore.Store
	scheduler Scheduler
	sink      telemetry.Sink
	logger    *slog.Logger
}

func New(vendorID, customerID string, deps Deps) *Store {
	if deps.Device == nil {
		deps.Device = devicestore.NewMemory()
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		vendorID:   vendorID,
		customerID: customerID,
		cart:       domain.LocalCart{VendorID: vendorID},
		device:     deps.Device,
		scheduler:  deps.Scheduler,
		sink:       deps.Sink,
		logger:     deps.Logger.With("vendor_id", vendorID, "customer_id", customerID),
	}
}

// Load hydrates the cart from its device snapshot. A missing snapshot leaves the cart
// empty; an unreadable one is discarded.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.device.Get(ctx, SnapshotKey(s.vendorID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart snapshot: %w", err)
	}

	var snap domain.LocalCart
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("cart: dropping corrupt snapshot", "err", err)
		_ = s.device.Remove(ctx, SnapshotKey(s.vendorID))
		return nil
	}

	s.mu.Lock()
	s.cart.Items = domain.CloneItems(snap.Items)
	s.mu.Unlock()
	return nil
}

func (s *Store) VendorID() string   { return s.vendorID }
func (s *Store) CustomerID() string { return s.customerID }

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() domain.LocalCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Store) Add(ctx context.Context, item domain.LineItem) domain.LocalCart {
	snap := s.mutate(ctx, func(c *domain.LocalCart) { c.Add(item) })
	s.sink.Track(domain.NewEvent(s.vendorID, domain.ProductClick{
		ProductID:   item.ProductID,
		ProductName: item.Name,
	}))
	return snap
}

func (s *Store) Remove(ctx context.Context, productID string) domain.LocalCart {
	return s.mutate(ctx, func(c *domain.LocalCart) { c.Remove(productID) })
}

func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) domain.LocalCart {
	return s.mutate(ctx, func(c *domain.LocalCart) { c.SetQuantity(productID, qty) })
}

// Replace swaps the whole cart contents, as when a recovered draft is resumed.
func (s *Store) Replace(ctx context.Context, items []domain.LineItem) domain.LocalCart {
	return s.mutate(ctx, func(c *domain.LocalCart) { c.Items = domain.CloneItems(items) })
}

func (s *Store) Clear(ctx context.Context) domain.LocalCart {
	return s.mutate(ctx, func(c *domain.LocalCart) { c.Items = nil })
}

// mutate applies fn, persists the snapshot and schedules a draft push. Device write
// failures are logged; the in-memory cart stays authoritative. The push is scheduled
// under the lock so the last scheduled snapshot is always the current cart.
func (s *Store) mutate(ctx context.Context, fn func(c *domain.LocalCart)) domain.LocalCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.cart)
	snap := s.cart.Clone()
	if err := s.persist(ctx, snap); err != nil {
		s.logger.Warn("cart: persist snapshot failed", "err", err)
	}
	if s.scheduler != nil && s.customerID != "" {
		s.scheduler.Schedule(s.vendorID, s.customerID, snap.Items)
	}
	return snap
}

func (s *Store) persist(ctx context.Context, snap domain.LocalCart) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.device.Set(ctx, SnapshotKey(s.vendorID), string(raw))
}
