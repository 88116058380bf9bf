package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
)

// ErrRateLimitExceeded is returned when no token is available for a key.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket is a per-key token bucket limiter for provider calls.
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
	if capacity < 1 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = time.Second
	}
	return &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Acquire consumes a token for key, failing fast when the bucket is empty.
func (tb *TokenBucket) Acquire(_ context.Context, key string) (func(), error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{tokens: tb.capacity, lastRefill: time.Now()}
		tb.buckets[key] = b
	}

	elapsed := time.Since(b.lastRefill)
	if refill := int(elapsed / tb.refillRate); refill > 0 {
		b.tokens = min(b.tokens+refill, tb.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(refill) * tb.refillRate)
	}

	if b.tokens <= 0 {
		return nil, ErrRateLimitExceeded
	}
	b.tokens--

	release := func() {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		if b, exists := tb.buckets[key]; exists {
			b.tokens = min(b.tokens+1, tb.capacity)
		}
	}
	return release, nil
}

// NoopRateLimiter always grants a permit.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

var (
	_ ports.RateLimiter = (*TokenBucket)(nil)
	_ ports.RateLimiter = NoopRateLimiter{}
)
