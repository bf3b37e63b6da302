// Package debounce collapses bursts of triggers for the same key into one delayed call.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
	seq   uint64
}

// runner serializes calls for one key. done is the sequence of the newest call that ran.
type runner struct {
	mu    sync.Mutex
	done  uint64
	users int
}

// Coalescer runs the most recently scheduled function for a key once the key has been
// quiet for the configured delay. Calls for the same key never overlap, and a call is
// skipped when a newer one for its key has already run.
type Coalescer struct {
	mu      sync.Mutex
	delay   time.Duration
	seq     uint64
	pending map[string]*pending
	runners map[string]*runner
}

func New(delay time.Duration) *Coalescer {
	return &Coalescer{
		delay:   delay,
		pending: make(map[string]*pending),
		runners: make(map[string]*runner),
	}
}

// Schedule cancels any outstanding call for key and arms a new one running fn.
func (c *Coalescer) Schedule(key string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[key]; ok {
		prev.timer.Stop()
	}
	c.seq++
	p := &pending{fn: fn, seq: c.seq}
	p.timer = time.AfterFunc(c.delay, func() { c.fire(key, p) })
	c.pending[key] = p
}

func (c *Coalescer) fire(key string, p *pending) {
	c.mu.Lock()
	// a reschedule or flush replaced this entry while the timer was firing
	if c.pending[key] != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	r := c.acquire(key)
	c.mu.Unlock()

	c.run(key, r, p)
}

// acquire returns the key's runner, registering the caller. c.mu must be held.
func (c *Coalescer) acquire(key string) *runner {
	r, ok := c.runners[key]
	if !ok {
		r = &runner{}
		c.runners[key] = r
	}
	r.users++
	return r
}

func (c *Coalescer) run(key string, r *runner, p *pending) {
	r.mu.Lock()
	if p.seq > r.done {
		r.done = p.seq
		p.fn()
	}
	r.mu.Unlock()

	c.mu.Lock()
	r.users--
	if r.users == 0 {
		delete(c.runners, key)
	}
	c.mu.Unlock()
}

// Cancel drops the outstanding call for key, if any.
func (c *Coalescer) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[key]; ok {
		p.timer.Stop()
		delete(c.pending, key)
	}
}

// Flush runs the outstanding call for key immediately, waiting for a call already running
// for that key. It reports whether one was pending.
func (c *Coalescer) Flush(key string) bool {
	c.mu.Lock()
	p, ok := c.pending[key]
	var r *runner
	if ok {
		p.timer.Stop()
		delete(c.pending, key)
		r = c.acquire(key)
	}
	c.mu.Unlock()
	if ok {
		c.run(key, r, p)
	}
	return ok
}

// FlushAll runs every outstanding call immediately, in no particular order.
func (c *Coalescer) FlushAll() {
	type job struct {
		key string
		r   *runner
		p   *pending
	}
	c.mu.Lock()
	jobs := make([]job, 0, len(c.pending))
	for key, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, key)
		jobs = append(jobs, job{key: key, r: c.acquire(key), p: p})
	}
	c.mu.Unlock()
	for _, j := range jobs {
		c.run(j.key, j.r, j.p)
	}
}

// Pending reports how many keys have an armed timer.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
