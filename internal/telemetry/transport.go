package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storefront-cart/internal/domain"
)

// Transport delivers one event to an analytics sink.
type Transport interface {
	Send(ctx context.Context, ev domain.AnalyticsEvent) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ev domain.AnalyticsEvent) error

func (f TransportFunc) Send(ctx context.Context, ev domain.AnalyticsEvent) error {
	return f(ctx, ev)
}

type eventWriter interface {
	Insert(ctx context.Context, event domain.AnalyticsEvent) error
}

// Direct writes events straight into the analytics store.
func Direct(repo eventWriter) Transport {
	return TransportFunc(repo.Insert)
}

var errNoTransport = errors.New("no telemetry transport configured")

// Chain prefers the fire-and-forget beacon and falls back to a bounded direct write.
type Chain struct {
	beacon  Transport
	direct  Transport
	timeout time.Duration
	logger  *slog.Logger
}

// NewChain builds the preference chain. Either transport may be nil.
func NewChain(beacon, direct Transport, timeout time.Duration, logger *slog.Logger) *Chain {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{beacon: beacon, direct: direct, timeout: timeout, logger: logger}
}

func (c *Chain) Send(ctx context.Context, ev domain.AnalyticsEvent) error {
	if c.beacon != nil {
		err := c.beacon.Send(ctx, ev)
		if err == nil {
			return nil
		}
		c.logger.Debug("telemetry: beacon send failed", "kind", ev.Kind(), "err", err)
	}
	if c.direct == nil {
		return errNoTransport
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.direct.Send(ctx, ev)
}
