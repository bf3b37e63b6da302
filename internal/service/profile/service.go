// Package profile fetches and saves the delivery contact of an anonymous customer, keeping
// a read-through copy in device storage.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
	profilerepo "storefront-cart/internal/repository/profile"
)

// CacheKey is the device storage key of the cached profile.
const CacheKey = "profile"

type Service struct {
	repo   profilerepo.Repository
	logger *slog.Logger
}

func New(repo profilerepo.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Fetch returns the customer's profile, or nil when none was ever saved. The device copy
// is served when present; otherwise the store is read and the copy refreshed. device may
// be nil.
func (s *Service) Fetch(ctx context.Context, customerID string, device devicestore.Store) (*domain.CustomerProfile, error) {
	if customerID == "" {
		return nil, nil
	}
	if p := s.cached(ctx, customerID, device); p != nil {
		return p, nil
	}

	p, err := s.repo.Get(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get profile", Err: err}
	}
	s.cache(ctx, p, device)
	return p, nil
}

// Save upserts the profile and refreshes the device copy.
func (s *Service) Save(ctx context.Context, customerID string, fields domain.ProfileFields, device devicestore.Store) (*domain.CustomerProfile, error) {
	if customerID == "" {
		return nil, &domain.ValidationError{Fields: []string{"customerId"}}
	}
	fields = domain.ProfileFields{
		Name:    strings.TrimSpace(fields.Name),
		Phone:   strings.TrimSpace(fields.Phone),
		Address: strings.TrimSpace(fields.Address),
	}
	p, err := s.repo.Upsert(ctx, customerID, fields)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "upsert profile", Err: err}
	}
	s.cache(ctx, p, device)
	return p, nil
}

func (s *Service) cached(ctx context.Context, customerID string, device devicestore.Store) *domain.CustomerProfile {
	if device == nil {
		return nil
	}
	raw, err := device.Get(ctx, CacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("profile: device cache unreadable", "err", err)
		}
		return nil
	}
	var p domain.CustomerProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.CustomerID != customerID {
		return nil
	}
	return &p
}

func (s *Service) cache(ctx context.Context, p *domain.CustomerProfile, device devicestore.Store) {
	if device == nil || p == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := device.Set(ctx, CacheKey, string(raw)); err != nil {
		s.logger.Debug("profile: device cache write failed", "err", err)
	}
}
