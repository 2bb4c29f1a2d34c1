package telegram

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// floodGuard keeps one token bucket per user. Buckets are created on first
// sight and never evicted; the user-id space of one bot is small enough.
type floodGuard struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newFloodGuard(messages int, window time.Duration) *floodGuard {
	if messages <= 0 {
		messages = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &floodGuard{
		limiters: map[int64]*rate.Limiter{},
		limit:    rate.Limit(float64(messages) / window.Seconds()),
		burst:    messages,
	}
}

func (g *floodGuard) Allow(userID int64) bool {
	g.mu.Lock()
	l, ok := g.limiters[userID]
	if !ok {
		l = rate.NewLimiter(g.limit, g.burst)
		g.limiters[userID] = l
	}
	g.mu.Unlock()
	return l.Allow()
}
