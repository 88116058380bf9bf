package adapters

import (
	"context"
	"sync"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
)

// MemoryThreadStore keeps thread snapshots in process memory. Used by tests
// and the eval runner; state does not survive a restart.
type MemoryThreadStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{snapshots: make(map[string][]byte)}
}

func (s *MemoryThreadStore) Load(_ context.Context, threadID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[threadID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (s *MemoryThreadStore) Save(_ context.Context, threadID string, snapshot []byte) error {
	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	s.mu.Lock()
	s.snapshots[threadID] = cp
	s.mu.Unlock()
	return nil
}

var _ ports.ThreadStore = (*MemoryThreadStore)(nil)
