package pos

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// locationLimiter throttles outbound calls per location. Toast enforces
// one request per second per restaurant; a shared limiter keyed by
// location id keeps concurrent workers within that ceiling.
type locationLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocationLimiter(limit rate.Limit, burst int) *locationLimiter {
	return &locationLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *locationLimiter) get(locationID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[locationID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[locationID] = lim
	}
	return lim
}

// Wait blocks until the location's bucket has a token or ctx is done.
func (l *locationLimiter) Wait(ctx context.Context, locationID string) error {
	return l.get(locationID).Wait(ctx)
}
