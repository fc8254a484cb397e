package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cinefind/cinefind/reco/engine"
)

// ErrRateLimitExceeded is returned when a key's bucket is empty.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket rate-limits outbound provider calls per key. Each key gets
// its own bucket refilled at a fixed interval.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

func NewTokenBucket(capacity int, refillRate time.Duration) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Acquire takes a token for key, failing fast when none is available. The
// release function returns the token early, which tightens bursts around
// slow provider calls.
func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: time.Now()}
		tb.buckets[key] = b
	}

	if tb.refillRate > 0 {
		refills := int(time.Since(b.lastRefill) / tb.refillRate)
		if refills > 0 {
			b.tokens = min(b.tokens+refills, tb.capacity)
			b.lastRefill = b.lastRefill.Add(time.Duration(refills) * tb.refillRate)
		}
	}

	if b.tokens <= 0 {
		return nil, ErrRateLimitExceeded
	}
	b.tokens--

	return func() {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		b.tokens = min(b.tokens+1, tb.capacity)
	}, nil
}

var _ engine.RateLimiter = (*TokenBucket)(nil)
