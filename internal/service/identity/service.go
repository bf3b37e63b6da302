package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
)

// SlotKey is the device storage key holding the anonymous customer id.
const SlotKey = "customer_id"

// Service issues and persists anonymous customer ids.
type Service struct {
	logger *slog.Logger
	newID  func() string
}

func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// GetOrCreate returns the id stored in the first provider holding a well-formed one,
// restoring it into earlier providers. Malformed ids are skipped. When every provider misses, a new id is written to all of them.
// If no provider can be written the fresh id is still returned; continuity is lost but the
// caller keeps working.
func (s *Service) GetOrCreate(ctx context.Context, providers ...devicestore.Store) string {
	chain := devicestore.NewChain(providers...)

	id, err := chain.Find(ctx, SlotKey, valid)
	if err == nil {
		return id
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("identity: storage unreadable", "err", err)
	}

	id = s.newID()
	if err := chain.Set(ctx, SlotKey, id); err != nil {
		s.logger.Warn("identity: storage unavailable, using ephemeral id", "err", err)
	}
	return id
}

// Valid reports whether id looks like an id issued by this service.
func Valid(id string) bool {
	return valid(id)
}

func valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
