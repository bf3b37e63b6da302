package devicestore

import (
	"context"
	"errors"

	"storefront-cart/internal/domain"
)

// Chain queries providers in order. A hit in a later provider is written back to every
// earlier provider.
type Chain struct {
	providers []Store
}

func NewChain(providers ...Store) *Chain {
	return &Chain{providers: providers}
}

// Get returns the first value found. It returns domain.ErrNotFound when every provider
// misses, or the last provider error when none could be read at all.
func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	return c.Find(ctx, key, nil)
}

// Find is Get restricted to values accept approves; rejected values count as misses and
// are overwritten when a later provider supplies an accepted one. A nil accept takes
// any value.
func (c *Chain) Find(ctx context.Context, key string, accept func(string) bool) (string, error) {
	var lastErr error
	readable := 0
	for i, p := range c.providers {
		v, err := p.Get(ctx, key)
		if err == nil && (accept == nil || accept(v)) {
			for _, earlier := range c.providers[:i] {
				_ = earlier.Set(ctx, key, v)
			}
			return v, nil
		}
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			readable++
			continue
		}
		lastErr = err
	}
	if readable == 0 && lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrNotFound
}

// Set writes to every provider and succeeds if at least one write did.
func (c *Chain) Set(ctx context.Context, key, value string) error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.providers) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Chain) Remove(ctx context.Context, key string) error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
