package ports

import "context"

// ThreadStore persists per-thread conversation state between turns. Snapshots
// are opaque to the store; the orchestrator owns their encoding.
type ThreadStore interface {
	// Load returns the latest snapshot for threadID. ok is false when the
	// thread has no persisted state yet (a fresh thread, not an error).
	Load(ctx context.Context, threadID string) (snapshot []byte, ok bool, err error)
	Save(ctx context.Context, threadID string, snapshot []byte) error
}
