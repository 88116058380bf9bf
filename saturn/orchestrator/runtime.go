package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
)

// Runtime binds the engine to a thread store. Each thread's state is loaded,
// advanced one turn, and persisted under a per-thread lock, so concurrent
// turns on different threads never interleave within one thread.
type Runtime struct {
	engine *Engine
	store  ports.ThreadStore
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRuntime(engine *Engine, store ports.ThreadStore, logger zerolog.Logger) *Runtime {
	return &Runtime{
		engine: engine,
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (r *Runtime) threadLock(threadID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[threadID] = lock
	}
	return lock
}

// RunTurn appends userText to the thread, advances the graph one turn, and
// persists the result. The returned state is a copy the caller may inspect
// freely.
func (r *Runtime) RunTurn(ctx context.Context, threadID, userText string) (*State, error) {
	lock := r.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	state, err := r.loadState(ctx, threadID)
	if err != nil {
		return nil, err
	}

	state.Messages = append(state.Messages, Message{Role: "user", Content: userText})

	if err := r.engine.RunTurn(ctx, state); err != nil {
		return nil, fmt.Errorf("turn failed for thread %s: %w", threadID, err)
	}

	for i := range state.Messages {
		state.Messages[i] = state.Messages[i].Normalized()
	}

	snapshot, err := MarshalState(state)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, threadID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist thread %s: %w", threadID, err)
	}

	r.logger.Debug().Str("thread_id", threadID).Int("messages", len(state.Messages)).Msg("Turn persisted")
	return state.Clone(), nil
}

// History returns the current message list for a thread without running a
// turn. A thread with no saved state yields an empty history.
func (r *Runtime) History(ctx context.Context, threadID string) ([]Message, error) {
	lock := r.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	state, err := r.loadState(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return append([]Message(nil), state.Messages...), nil
}

func (r *Runtime) loadState(ctx context.Context, threadID string) (*State, error) {
	snapshot, ok, err := r.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	if !ok {
		return &State{}, nil
	}
	state, err := UnmarshalState(snapshot)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot for thread %s: %w", threadID, err)
	}
	return state, nil
}
