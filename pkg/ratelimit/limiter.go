package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for request pacing
type Limiter interface {
	// Allow checks if a request may proceed right now
	Allow() bool
	// Wait blocks until the pacing policy allows another request
	Wait()
	// Reset resets the limiter state
	Reset()
}

// Pacer spaces requests a minimum interval apart. Once a caller has issued
// more than slowdownAfter requests it inserts an extra fixed delay, trading
// a little latency for staying under the per-credential budget on long runs.
type Pacer struct {
	minInterval   time.Duration
	slowdownAfter int
	slowdownDelay time.Duration

	mu    sync.Mutex
	last  time.Time
	count int

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPacer creates a pacer with the given minimum interval between requests.
// slowdownAfter of 0 disables the progressive delay.
func NewPacer(minInterval time.Duration, slowdownAfter int, slowdownDelay time.Duration) *Pacer {
	return &Pacer{
		minInterval:   minInterval,
		slowdownAfter: slowdownAfter,
		slowdownDelay: slowdownDelay,
		now:           time.Now,
		sleep:         time.Sleep,
	}
}

// Allow checks if enough time has passed since the last request. It records
// the request when allowed.
func (p *Pacer) Allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.last.IsZero() && now.Sub(p.last) < p.minInterval {
		return false
	}
	p.record(now)
	return true
}

// Wait blocks until the minimum interval has elapsed, then records the
// request and applies the progressive slowdown when due.
func (p *Pacer) Wait() {
	p.mu.Lock()
	now := p.now()
	var delay time.Duration
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.minInterval {
			delay = p.minInterval - elapsed
		}
	}
	p.mu.Unlock()

	if delay > 0 {
		p.sleep(delay)
	}

	p.mu.Lock()
	p.record(p.now())
	slow := p.slowdownAfter > 0 && p.count > p.slowdownAfter
	p.mu.Unlock()

	if slow {
		p.sleep(p.slowdownDelay)
	}
}

// Reset clears the pacing state
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = time.Time{}
	p.count = 0
}

// record must be called with the lock held
func (p *Pacer) record(now time.Time) {
	p.last = now
	p.count++
}
