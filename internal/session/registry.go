// Package session holds the live state of each shopper on each storefront: their cart,
// their recovery prompt and their deferred page views.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/service/cart"
	"storefront-cart/internal/service/recovery"
	"storefront-cart/internal/telemetry"
)

// Flusher pushes a pair's pending draft write immediately.
type Flusher interface {
	Flush(vendorID, customerID string) bool
}

type Deps struct {
	// Device is the shared backend; each customer gets its own namespace in it.
	Device    devicestore.Store
	Scheduler cart.Scheduler
	Flusher   Flusher
	Drafts    recovery.Drafts
	Profiles  recovery.Profiles
	Sink      telemetry.Sink
	Logger    *slog.Logger
}

type Session struct {
	VendorID   string
	CustomerID string
	Device     devicestore.Store
	Cart       *cart.Store
	Recovery   *recovery.Negotiator
	Views      *telemetry.ViewGate

	lastSeen time.Time
}

type Registry struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry(deps Deps) *Registry {
	if deps.Device == nil {
		deps.Device = devicestore.NewMemory()
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{deps: deps, sessions: make(map[string]*Session), now: time.Now}
}

func key(vendorID, customerID string) string {
	return vendorID + "|" + customerID
}

// Get returns the session for the pair, creating it and hydrating its cart from device
// storage on first use.
func (r *Registry) Get(ctx context.Context, vendorID, customerID string) *Session {
	k := key(vendorID, customerID)

	r.mu.Lock()
	if s, ok := r.sessions[k]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	s := r.build(ctx, vendorID, customerID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[k]; ok {
		existing.lastSeen = r.now()
		return existing
	}
	s.lastSeen = r.now()
	r.sessions[k] = s
	return s
}

func (r *Registry) build(ctx context.Context, vendorID, customerID string) *Session {
	device := devicestore.ForCustomer(r.deps.Device, customerID)
	logger := r.deps.Logger.With("vendor_id", vendorID, "customer_id", customerID)
	views := telemetry.NewViewGate(r.deps.Sink)

	c := cart.New(vendorID, customerID, cart.Deps{
		Device:    device,
		Scheduler: r.deps.Scheduler,
		Sink:      views,
		Logger:    r.deps.Logger,
	})
	if err := c.Load(ctx); err != nil {
		logger.Warn("session: cart snapshot unavailable", "err", err)
	}

	return &Session{
		VendorID:   vendorID,
		CustomerID: customerID,
		Device:     device,
		Cart:       c,
		Recovery:   recovery.New(r.deps.Drafts, r.deps.Profiles, device, r.deps.Logger),
		Views:      views,
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than ttl after flushing their pending draft push.
// It returns the number evicted.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var idle []*Session
	for k, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, k)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if r.deps.Flusher != nil {
			r.deps.Flusher.Flush(s.VendorID, s.CustomerID)
		}
	}
	if len(idle) > 0 {
		r.deps.Logger.Debug("session: swept idle sessions", "count", len(idle))
	}
	return len(idle)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, ttl, interval time.Duration) error {
	if interval <= 0 {
		interval = ttl / 2
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ttl)
		}
	}
}
