package telemetry

import (
	"sync"

	"storefront-cart/internal/domain"
)

const maxHeldViews = 16

// ViewGate holds store_view events of one page session until the initial page load has
// finished, so telemetry does not compete with first render. Other kinds pass through.
type ViewGate struct {
	mu     sync.Mutex
	sink   Sink
	loaded bool
	held   []domain.AnalyticsEvent
}

func NewViewGate(sink Sink) *ViewGate {
	if sink == nil {
		sink = Discard
	}
	return &ViewGate{sink: sink}
}

func (g *ViewGate) Track(ev domain.AnalyticsEvent) {
	if ev.Kind() == domain.KindStoreView {
		g.mu.Lock()
		if !g.loaded {
			if len(g.held) < maxHeldViews {
				g.held = append(g.held, ev)
			}
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()
	}
	g.sink.Track(ev)
}

// MarkLoaded releases held views and lets later ones through immediately.
func (g *ViewGate) MarkLoaded() {
	g.mu.Lock()
	held := g.held
	g.held = nil
	g.loaded = true
	g.mu.Unlock()

	for _, ev := range held {
		g.sink.Track(ev)
	}
}

// Reset re-arms the gate for a new page load.
func (g *ViewGate) Reset() {
	g.mu.Lock()
	g.loaded = false
	g.mu.Unlock()
}

func (g *ViewGate) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded
}
