// Package recovery offers a returning shopper their abandoned draft cart, at most once per
// draft.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
)

type State int

const (
	Idle State = iota
	Detecting
	NoDraft
	PromptShown
	Resumed
	Discarded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Detecting:
		return "detecting"
	case NoDraft:
		return "no_draft"
	case PromptShown:
		return "prompt_shown"
	case Resumed:
		return "resumed"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible in this session.
func (s State) Terminal() bool {
	return s == NoDraft || s == Resumed || s == Discarded
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := Idle; st <= Discarded; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("recovery: unknown state %q", b)
}

var ErrInvalidTransition = errors.New("recovery: invalid transition")

// OfferedKey is the device storage key remembering the last draft id offered to the
// shopper for a vendor. A draft is offered at most once, whether it was then resumed,
// discarded or ignored.
func OfferedKey(vendorID string) string {
	return "recovery:offered:" + vendorID
}

// Drafts is the slice of the draft synchronizer the negotiator needs. Get returns nil
// when the pair has no draft.
type Drafts interface {
	Get(ctx context.Context, vendorID, customerID string) (*domain.DraftCart, error)
	Delete(ctx context.Context, draftID string) error
}

// Profiles answers whether a customer has been here before. Fetch returns nil for
// unknown customers.
type Profiles interface {
	Fetch(ctx context.Context, customerID string, device devicestore.Store) (*domain.CustomerProfile, error)
}

// Cart receives the recovered items.
type Cart interface {
	Replace(ctx context.Context, items []domain.LineItem) domain.LocalCart
}

// Negotiator drives one session's recovery prompt.
type Negotiator struct {
	mu       sync.Mutex
	drafts   Drafts
	profiles Profiles
	device   devicestore.Store
	logger   *slog.Logger

	state      State
	vendorID   string
	customerID string
	draft      *domain.DraftCart
}

func New(drafts Drafts, profiles Profiles, device devicestore.Store, logger *slog.Logger) *Negotiator {
	if device == nil {
		device = devicestore.NewMemory()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Negotiator{drafts: drafts, profiles: profiles, device: device, logger: logger}
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Draft returns the draft on offer while the prompt is shown.
func (n *Negotiator) Draft() *domain.DraftCart {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != PromptShown || n.draft == nil {
		return nil
	}
	cp := *n.draft
	cp.Items = domain.CloneItems(n.draft.Items)
	return &cp
}

// Start runs detection for a new session. Lookup failures end in NoDraft; the shopper
// never sees a recovery error.
func (n *Negotiator) Start(ctx context.Context, vendorID, customerID string) State {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.vendorID, n.customerID, n.draft = vendorID, customerID, nil
	n.state = Idle

	if !n.returning(ctx, customerID) {
		n.state = NoDraft
		return n.state
	}

	n.state = Detecting
	d, err := n.drafts.Get(ctx, vendorID, customerID)
	if err != nil {
		n.logger.Warn("recovery: draft lookup failed", "vendor_id", vendorID, "err", err)
		n.state = NoDraft
		return n.state
	}
	if d == nil || len(d.Items) == 0 {
		n.state = NoDraft
		return n.state
	}

	if offered, err := n.device.Get(ctx, OfferedKey(vendorID)); err == nil && offered == d.ID {
		n.state = NoDraft
		return n.state
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		n.logger.Debug("recovery: offered marker unreadable", "err", err)
	}

	if err := n.device.Set(ctx, OfferedKey(vendorID), d.ID); err != nil {
		n.logger.Warn("recovery: could not record offered draft", "draft_id", d.ID, "err", err)
	}
	n.draft = d
	n.state = PromptShown
	return n.state
}

func (n *Negotiator) returning(ctx context.Context, customerID string) bool {
	if customerID == "" || n.profiles == nil || n.drafts == nil {
		return false
	}
	p, err := n.profiles.Fetch(ctx, customerID, n.device)
	if err != nil {
		n.logger.Warn("recovery: profile lookup failed", "err", err)
		return false
	}
	return p != nil
}

// Resume loads the offered draft into cart.
func (n *Negotiator) Resume(ctx context.Context, cart Cart) (domain.LocalCart, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != PromptShown {
		return domain.LocalCart{}, ErrInvalidTransition
	}
	snap := cart.Replace(ctx, n.draft.Items)
	n.state = Resumed
	return snap, nil
}

// Discard deletes the offered draft. The offered marker set by Start keeps it from being
// offered again even when the delete fails.
func (n *Negotiator) Discard(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != PromptShown {
		return ErrInvalidTransition
	}
	if err := n.drafts.Delete(ctx, n.draft.ID); err != nil {
		n.logger.Warn("recovery: draft delete failed", "draft_id", n.draft.ID, "err", err)
	}
	if err := n.device.Set(ctx, OfferedKey(n.vendorID), n.draft.ID); err != nil {
		n.logger.Warn("recovery: could not record offered draft", "draft_id", n.draft.ID, "err", err)
	}
	n.state = Discarded
	return nil
}
