package telemetry

import (
	"sync"

	"storefront-cart/internal/domain"
)

// DefaultCapacity bounds the retry queue.
const DefaultCapacity = 100

// Queue is a bounded FIFO ring buffer. Pushing into a full queue evicts the oldest event.
type Queue struct {
	mu      sync.Mutex
	buf     []domain.AnalyticsEvent
	head    int
	size    int
	evicted uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{buf: make([]domain.AnalyticsEvent, capacity)}
}

// Push appends ev and reports whether an older event was evicted to make room.
func (q *Queue) Push(ev domain.AnalyticsEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if q.size == len(q.buf) {
		q.buf[q.head] = domain.AnalyticsEvent{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.evicted++
		evicted = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = ev
	q.size++
	return evicted
}

// PushFront returns ev to the head of the queue after a failed dispatch. If the queue
// filled up in the meantime ev is the oldest event and is dropped.
func (q *Queue) PushFront(ev domain.AnalyticsEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.buf) {
		q.evicted++
		return false
	}
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = ev
	q.size++
	return true
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (domain.AnalyticsEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return domain.AnalyticsEvent{}, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = domain.AnalyticsEvent{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return ev, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Cap() int {
	return len(q.buf)
}

// Evicted counts events dropped for capacity since creation.
func (q *Queue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
