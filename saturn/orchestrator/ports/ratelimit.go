package ports

import "context"

// RateLimiter bounds throughput against the LLM provider.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
