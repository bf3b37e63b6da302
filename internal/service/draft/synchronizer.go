// Package draft keeps the durable draft cart of each (vendor, customer) pair in step with
// the local cart. Pushes are debounced so a burst of edits becomes one write.
package draft

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront-cart/internal/debounce"
	"storefront-cart/internal/domain"
	draftrepo "storefront-cart/internal/repository/draft"
)

const (
	DefaultDelay = 500 * time.Millisecond
	pushTimeout  = 5 * time.Second
)

type Synchronizer struct {
	repo      draftrepo.Repository
	coalescer *debounce.Coalescer
	logger    *slog.Logger
	tracer    trace.Tracer
}

func New(repo draftrepo.Repository, delay time.Duration, logger *slog.Logger) *Synchronizer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synchronizer{
		repo:      repo,
		coalescer: debounce.New(delay),
		logger:    logger,
		tracer:    otel.Tracer("storefront-cart/draft"),
	}
}

func key(vendorID, customerID string) string {
	return vendorID + "|" + customerID
}

// Schedule arms a push of items for the pair, replacing any push still waiting.
func (s *Synchronizer) Schedule(vendorID, customerID string, items []domain.LineItem) {
	items = domain.CloneItems(items)
	s.coalescer.Schedule(key(vendorID, customerID), func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.Push(ctx, vendorID, customerID, items); err != nil {
			s.logger.Warn("draft: push failed",
				"vendor_id", vendorID, "customer_id", customerID, "err", err)
		}
	})
}

// Flush runs the pending push for the pair right away.
func (s *Synchronizer) Flush(vendorID, customerID string) bool {
	return s.coalescer.Flush(key(vendorID, customerID))
}

// FlushAll runs every pending push, used on shutdown.
func (s *Synchronizer) FlushAll() {
	s.coalescer.FlushAll()
}

func (s *Synchronizer) Pending() int {
	return s.coalescer.Pending()
}

// Push writes items as the pair's draft. An empty cart removes the draft. When another
// writer created the draft first, the latest row is fetched and overwritten once.
func (s *Synchronizer) Push(ctx context.Context, vendorID, customerID string, items []domain.LineItem) (err error) {
	ctx, span := s.tracer.Start(ctx, "draft.push", trace.WithAttributes(
		attribute.String("vendor.id", vendorID),
		attribute.Int("cart.items", len(items)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	existing, err := s.Get(ctx, vendorID, customerID)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		if existing == nil {
			return nil
		}
		return s.Delete(ctx, existing.ID)
	}

	if existing != nil {
		_, err = s.repo.UpdateItems(ctx, existing.ID, items)
		if !errors.Is(err, domain.ErrNotFound) {
			return wrap("update draft", err)
		}
		// deleted between read and write; fall through and recreate
	}

	_, err = s.repo.Create(ctx, vendorID, customerID, items)
	if !errors.Is(err, domain.ErrConflict) {
		return wrap("create draft", err)
	}

	s.logger.Debug("draft: concurrent create detected, overwriting latest",
		"vendor_id", vendorID, "customer_id", customerID)
	latest, err := s.repo.Get(ctx, vendorID, customerID)
	if err != nil {
		return wrap("refetch draft", err)
	}
	_, err = s.repo.UpdateItems(ctx, latest.ID, items)
	return wrap("update draft after conflict", err)
}

// Get returns the live draft for the pair, or nil when there is none.
func (s *Synchronizer) Get(ctx context.Context, vendorID, customerID string) (*domain.DraftCart, error) {
	d, err := s.repo.Get(ctx, vendorID, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get draft", err)
	}
	return d, nil
}

// Delete removes a draft by id. Deleting an absent draft succeeds.
func (s *Synchronizer) Delete(ctx context.Context, draftID string) error {
	err := s.repo.Delete(ctx, draftID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return wrap("delete draft", err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
