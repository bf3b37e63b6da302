package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
)

type stubDrafts struct {
	draft     *domain.DraftCart
	getErr    error
	deleteErr error
	deleted   []string
}

func (s *stubDrafts) Get(context.Context, string, string) (*domain.DraftCart, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.draft, nil
}

func (s *stubDrafts) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if s.draft != nil && s.draft.ID == id {
		s.draft = nil
	}
	return nil
}

type stubProfiles struct {
	profile *domain.CustomerProfile
	err     error
}

func (s stubProfiles) Fetch(context.Context, string, devicestore.Store) (*domain.CustomerProfile, error) {
	return s.profile, s.err
}

type stubCart struct {
	items []domain.LineItem
}

func (c *stubCart) Replace(_ context.Context, items []domain.LineItem) domain.LocalCart {
	c.items = items
	return domain.LocalCart{VendorID: "v1", Items: items}
}

var returning = stubProfiles{profile: &domain.CustomerProfile{CustomerID: "c1", Name: "Ana"}}

func twoItemDraft() *domain.DraftCart {
	return &domain.DraftCart{
		ID: "d1", VendorID: "v1", CustomerID: "c1", Status: domain.DraftStatus,
		Items: []domain.LineItem{
			{ProductID: "A", UnitPriceCents: 1000, Quantity: 1},
			{ProductID: "B", UnitPriceCents: 500, Quantity: 2},
		},
	}
}

func TestStart_NewCustomerSkipsDetection(t *testing.T) {
	drafts := &stubDrafts{draft: twoItemDraft()}
	n := New(drafts, stubProfiles{}, nil, nil)

	assert.Equal(t, NoDraft, n.Start(context.Background(), "v1", "c1"))
	assert.Nil(t, n.Draft())
}

func TestStart_EmptyOrMissingDraft(t *testing.T) {
	ctx := context.Background()

	n := New(&stubDrafts{}, returning, nil, nil)
	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"))

	empty := twoItemDraft()
	empty.Items = nil
	n = New(&stubDrafts{draft: empty}, returning, nil, nil)
	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"))
}

func TestStart_LookupFailureEndsQuietly(t *testing.T) {
	ctx := context.Background()

	n := New(&stubDrafts{getErr: errors.New("down")}, returning, nil, nil)
	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"))

	n = New(&stubDrafts{draft: twoItemDraft()}, stubProfiles{err: errors.New("down")}, nil, nil)
	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"))
}

func TestDiscard_DraftIsNotOfferedAgain(t *testing.T) {
	ctx := context.Background()
	device := devicestore.NewMemory()
	drafts := &stubDrafts{draft: twoItemDraft()}

	n := New(drafts, returning, device, nil)
	require.Equal(t, PromptShown, n.Start(ctx, "v1", "c1"))
	require.NotNil(t, n.Draft())
	assert.Len(t, n.Draft().Items, 2)

	require.NoError(t, n.Discard(ctx))
	assert.Equal(t, Discarded, n.State())
	assert.Equal(t, []string{"d1"}, drafts.deleted)

	marker, err := device.Get(ctx, OfferedKey("v1"))
	require.NoError(t, err)
	assert.Equal(t, "d1", marker)

	assert.Equal(t, NoDraft, New(drafts, returning, device, nil).Start(ctx, "v1", "c1"))
}

func TestDiscard_MarkerSuppressesUndeletedDraft(t *testing.T) {
	ctx := context.Background()
	device := devicestore.NewMemory()
	drafts := &stubDrafts{draft: twoItemDraft(), deleteErr: errors.New("down")}

	n := New(drafts, returning, device, nil)
	require.Equal(t, PromptShown, n.Start(ctx, "v1", "c1"))
	require.NoError(t, n.Discard(ctx))

	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"), "same draft id is prompted at most once")

	fresh := twoItemDraft()
	fresh.ID = "d2"
	drafts.draft = fresh
	assert.Equal(t, PromptShown, n.Start(ctx, "v1", "c1"), "a different draft is offered")
}

func TestResume_LoadsDraftIntoCart(t *testing.T) {
	ctx := context.Background()
	cart := &stubCart{}
	n := New(&stubDrafts{draft: twoItemDraft()}, returning, nil, nil)
	require.Equal(t, PromptShown, n.Start(ctx, "v1", "c1"))

	snap, err := n.Resume(ctx, cart)
	require.NoError(t, err)
	assert.Equal(t, Resumed, n.State())
	assert.Len(t, cart.items, 2)
	assert.Equal(t, int64(2000), snap.Total())
}

func TestStart_UnresolvedDraftIsOfferedOnce(t *testing.T) {
	ctx := context.Background()
	device := devicestore.NewMemory()
	drafts := &stubDrafts{draft: twoItemDraft()}

	first := New(drafts, returning, device, nil)
	require.Equal(t, PromptShown, first.Start(ctx, "v1", "c1"))

	assert.Equal(t, NoDraft, New(drafts, returning, device, nil).Start(ctx, "v1", "c1"),
		"a new session must not offer the same unresolved draft")
	assert.Equal(t, NoDraft, first.Start(ctx, "v1", "c1"),
		"restarting the same session must not offer it either")
	assert.Nil(t, first.Draft())

	other := devicestore.NewMemory()
	assert.Equal(t, PromptShown, New(drafts, returning, other, nil).Start(ctx, "v1", "c1"),
		"the marker is per device")
}

func TestStart_ResumedDraftIsNotOfferedAgain(t *testing.T) {
	ctx := context.Background()
	device := devicestore.NewMemory()
	drafts := &stubDrafts{draft: twoItemDraft()}
	cart := &stubCart{}

	n := New(drafts, returning, device, nil)
	require.Equal(t, PromptShown, n.Start(ctx, "v1", "c1"))
	_, err := n.Resume(ctx, cart)
	require.NoError(t, err)

	// the resumed cart keeps pushing into the same draft row
	drafts.draft.Items = append(drafts.draft.Items, domain.LineItem{ProductID: "C", UnitPriceCents: 100, Quantity: 1})

	assert.Equal(t, NoDraft, n.Start(ctx, "v1", "c1"))
	assert.Equal(t, NoDraft, New(drafts, returning, device, nil).Start(ctx, "v1", "c1"))
}

func TestTransitionsOutsidePrompt(t *testing.T) {
	ctx := context.Background()
	n := New(&stubDrafts{}, returning, nil, nil)

	_, err := n.Resume(ctx, &stubCart{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, n.Discard(ctx), ErrInvalidTransition)

	n = New(&stubDrafts{draft: twoItemDraft()}, returning, nil, nil)
	n.Start(ctx, "v1", "c1")
	_, err = n.Resume(ctx, &stubCart{})
	require.NoError(t, err)
	assert.ErrorIs(t, n.Discard(ctx), ErrInvalidTransition)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "prompt_shown", PromptShown.String())
	assert.True(t, Discarded.Terminal())
	assert.False(t, PromptShown.Terminal())
}

func TestStateText(t *testing.T) {
	for st := Idle; st <= Discarded; st++ {
		b, err := st.MarshalText()
		require.NoError(t, err)

		var got State
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, st, got)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
