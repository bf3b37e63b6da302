// Package devicestore provides the key/value persistence a shopper device owns: the
// anonymous identity slots, the per-vendor cart snapshot, the cached profile and the
// offered-draft marker.
package devicestore

import (
	"context"
	"sync"

	"storefront-cart/internal/domain"
)

// Store is a string key/value slot store. Get returns domain.ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

type prefixed struct {
	prefix string
	store  Store
}

// Prefixed scopes every key of store under prefix, giving each device its own namespace
// inside a shared backend.
func Prefixed(store Store, prefix string) Store {
	return &prefixed{prefix: prefix, store: store}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.store.Remove(ctx, p.prefix+key)
}

// ForCustomer returns the namespace holding one device's keys.
func ForCustomer(store Store, customerID string) Store {
	return Prefixed(store, "device:"+customerID+":")
}
