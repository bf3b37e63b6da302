package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
)

type stubRepo struct {
	profiles map[string]*domain.CustomerProfile
	gets     int
	err      error
}

func newStubRepo() *stubRepo {
	return &stubRepo{profiles: make(map[string]*domain.CustomerProfile)}
}

func (r *stubRepo) Get(_ context.Context, customerID string) (*domain.CustomerProfile, error) {
	r.gets++
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubRepo) Upsert(_ context.Context, customerID string, f domain.ProfileFields) (*domain.CustomerProfile, error) {
	if r.err != nil {
		return nil, r.err
	}
	now := time.Now()
	p, ok := r.profiles[customerID]
	if !ok {
		p = &domain.CustomerProfile{CustomerID: customerID, CreatedAt: now}
		r.profiles[customerID] = p
	}
	p.Name, p.Phone, p.Address, p.UpdatedAt = f.Name, f.Phone, f.Address, now
	cp := *p
	return &cp, nil
}

func TestFetch_UnknownCustomerIsNil(t *testing.T) {
	svc := New(newStubRepo(), nil)
	p, err := svc.Fetch(context.Background(), "c1", devicestore.NewMemory())
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.Fetch(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSave_UpsertsAndCaches(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	device := devicestore.NewMemory()
	svc := New(repo, nil)

	created, err := svc.Save(ctx, "c1", domain.ProfileFields{Name: " Ana ", Phone: "555", Address: "Main 1"}, device)
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Name)

	updated, err := svc.Save(ctx, "c1", domain.ProfileFields{Name: "Ana", Phone: "777", Address: "Main 1"}, device)
	require.NoError(t, err)
	assert.Equal(t, "777", updated.Phone)
	assert.Len(t, repo.profiles, 1)

	fetched, err := svc.Fetch(ctx, "c1", device)
	require.NoError(t, err)
	assert.Equal(t, "777", fetched.Phone)
	assert.Equal(t, 0, repo.gets, "served from the device copy")
}

func TestFetch_ReadThroughFillsCache(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	repo.profiles["c1"] = &domain.CustomerProfile{CustomerID: "c1", Name: "Ana", Phone: "555", Address: "Main 1"}
	device := devicestore.NewMemory()
	svc := New(repo, nil)

	_, err := svc.Fetch(ctx, "c1", device)
	require.NoError(t, err)
	_, err = svc.Fetch(ctx, "c1", device)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)

	_, err = device.Get(ctx, CacheKey)
	assert.NoError(t, err)
}

func TestFetch_IgnoresCacheOfAnotherCustomer(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	device := devicestore.NewMemory()
	svc := New(repo, nil)
	_, err := svc.Save(ctx, "c1", domain.ProfileFields{Name: "Ana"}, device)
	require.NoError(t, err)

	p, err := svc.Fetch(ctx, "c2", device)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStoreFailuresArePersistenceErrors(t *testing.T) {
	repo := newStubRepo()
	repo.err = errors.New("down")
	svc := New(repo, nil)

	_, err := svc.Fetch(context.Background(), "c1", nil)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get profile", perr.Op)

	_, err = svc.Save(context.Background(), "c1", domain.ProfileFields{}, nil)
	require.ErrorAs(t, err, &perr)

	var verr *domain.ValidationError
	_, err = svc.Save(context.Background(), "", domain.ProfileFields{}, nil)
	require.ErrorAs(t, err, &verr)
}
