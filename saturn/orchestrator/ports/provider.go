package ports

import "context"

// Options controls sampling for a single oracle call.
type Options struct {
	Model        string
	Temperature  float32
	MaxNewTokens int
}

// Provider is the abstraction over the raw LLM transport. The orchestrator
// treats it as an opaque call that either returns text or fails; retry and
// backoff policies live behind this port, not in front of it.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}
