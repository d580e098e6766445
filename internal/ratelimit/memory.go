package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Housekeeping for per-key state: idle callers are forgotten after a while
// so the map stays bounded even with rotating client IPs.
const (
	sweepEvery = time.Minute
	idleAfter  = 10 * time.Minute
)

// client holds the token-bucket state for one key.
type client struct {
	allowance float64   // tokens currently available
	seen      time.Time // last Allow call, used for refill and eviction
}

// MemoryLimiter is a per-key token bucket held in process memory. It suits a
// single-instance deployment; behind a load balancer each instance counts
// independently, so use the Redis limiter there instead.
type MemoryLimiter struct {
	perSecond float64 // sustained refill rate
	burst     float64 // bucket capacity

	mu      sync.Mutex
	clients map[string]*client

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter builds a limiter allowing rate requests per second with
// the given burst headroom per key. A janitor goroutine sweeps idle keys;
// call Close to stop it.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		perSecond: rate,
		burst:     float64(burst),
		clients:   make(map[string]*client),
		stop:      make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Allow reports whether the caller identified by key may proceed, spending
// one token if so.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[key]
	if !ok {
		c = &client{allowance: m.burst, seen: now}
		m.clients[key] = c
	} else {
		c.allowance = min(m.burst, c.allowance+now.Sub(c.seen).Seconds()*m.perSecond)
		c.seen = now
	}

	if c.allowance < 1 {
		return false, nil
	}
	c.allowance--
	return true, nil
}

// Close stops the janitor. Subsequent calls are no-ops.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryLimiter) janitor() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now().Add(-idleAfter))
		}
	}
}

// sweep drops every client not seen since the cutoff.
func (m *MemoryLimiter) sweep(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, c := range m.clients {
		if c.seen.Before(cutoff) {
			delete(m.clients, key)
		}
	}
}
