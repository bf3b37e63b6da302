// Package telemetry records storefront analytics events without ever blocking or failing
// the caller. Events that cannot be delivered right away wait in a bounded retry queue
// that a background drain loop empties.
package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"storefront-cart/internal/domain"
)

// Sink accepts events. Implementations must return immediately.
type Sink interface {
	Track(ev domain.AnalyticsEvent)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Track(domain.AnalyticsEvent) {}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithCapacity(n int) Option {
	return func(t *Tracker) { t.queue = NewQueue(n) }
}

// WithDrainInterval sets the fallback timer that starts a drain pass when no idle signal
// arrives.
func WithDrainInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.drainInterval = d
		}
	}
}

// WithProbe installs a connectivity check run on every fallback tick; its result sets the
// online flag.
func WithProbe(probe func(ctx context.Context) error) Option {
	return func(t *Tracker) { t.probe = probe }
}

// Tracker is the process-wide telemetry pipeline. It is created empty, drained by Run and
// simply abandoned at shutdown.
type Tracker struct {
	logger        *slog.Logger
	transport     Transport
	queue         *Queue
	online        atomic.Bool
	dispatch      chan domain.AnalyticsEvent
	idle          chan struct{}
	drainInterval time.Duration
	probe         func(ctx context.Context) error
}

func NewTracker(transport Transport, opts ...Option) *Tracker {
	t := &Tracker{
		logger:        slog.New(slog.DiscardHandler),
		transport:     transport,
		queue:         NewQueue(DefaultCapacity),
		dispatch:      make(chan domain.AnalyticsEvent, 64),
		idle:          make(chan struct{}, 1),
		drainInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.online.Store(true)
	return t
}

// Track records ev. It never blocks, never panics and never reports an error.
func (t *Tracker) Track(ev domain.AnalyticsEvent) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug("telemetry: track recovered", "panic", r)
		}
	}()
	if ev.Payload == nil {
		t.logger.Debug("telemetry: dropping event without payload", "vendor_id", ev.VendorID)
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if !t.online.Load() {
		t.enqueue(ev)
		return
	}
	select {
	case t.dispatch <- ev:
	default:
		t.enqueue(ev)
	}
}

// SetOnline flips connectivity. Coming back online triggers a drain pass.
func (t *Tracker) SetOnline(online bool) {
	if prev := t.online.Swap(online); !prev && online {
		t.signalIdle()
	}
}

func (t *Tracker) Online() bool {
	return t.online.Load()
}

// Pending reports how many events wait in the retry queue.
func (t *Tracker) Pending() int {
	return t.queue.Len()
}

// Run dispatches tracked events and drains the retry queue until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.dispatchLoop(ctx)
	}()
	t.drainLoop(ctx)
	<-done
	return nil
}

func (t *Tracker) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.dispatch:
			if err := t.transport.Send(ctx, ev); err != nil {
				t.logger.Debug("telemetry: dispatch failed, queued for retry", "kind", ev.Kind(), "err", err)
				t.enqueue(ev)
				continue
			}
			if len(t.dispatch) == 0 {
				t.signalIdle()
			}
		}
	}
}

func (t *Tracker) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(t.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.idle:
			t.drainPass(ctx)
		case <-ticker.C:
			if t.probe != nil {
				t.SetOnline(t.probe(ctx) == nil)
			}
			t.drainPass(ctx)
		}
	}
}

// drainPass sends queued events one at a time and stops at the first failure; the failed
// event goes back to the head of the queue for the next pass.
func (t *Tracker) drainPass(ctx context.Context) {
	for t.online.Load() {
		if ctx.Err() != nil {
			return
		}
		ev, ok := t.queue.Pop()
		if !ok {
			return
		}
		if err := t.transport.Send(ctx, ev); err != nil {
			t.logger.Debug("telemetry: drain attempt failed", "kind", ev.Kind(), "pending", t.queue.Len()+1, "err", err)
			t.queue.PushFront(ev)
			return
		}
	}
}

func (t *Tracker) enqueue(ev domain.AnalyticsEvent) {
	if t.queue.Push(ev) {
		t.logger.Debug("telemetry: retry queue full, evicted oldest event")
	}
}

func (t *Tracker) signalIdle() {
	select {
	case t.idle <- struct{}{}:
	default:
	}
}
