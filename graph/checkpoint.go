package graph

import (
	"context"
	"sync"
	"time"
)

// Checkpointer persists the latest state per conversation thread so a later
// invocation with the same thread ID resumes where the previous one ended.
type Checkpointer[S any] interface {
	Put(ctx context.Context, threadID string, state S) error
	Get(ctx context.Context, threadID string) (S, bool, error)
}

type checkpoint[S any] struct {
	state   S
	updated time.Time
}

// MemorySaver is a volatile Checkpointer keeping the latest state per thread
// in a process-local map. Safe for concurrent use. Best suited for tests and
// demo programs; state is lost when the process exits.
type MemorySaver[S any] struct {
	mu       sync.RWMutex
	byThread map[string]checkpoint[S]
}

// NewMemorySaver constructs an empty in-memory checkpointer.
func NewMemorySaver[S any]() *MemorySaver[S] {
	return &MemorySaver[S]{byThread: make(map[string]checkpoint[S])}
}

// Put stores state as the latest checkpoint for threadID.
func (m *MemorySaver[S]) Put(_ context.Context, threadID string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byThread[threadID] = checkpoint[S]{state: state, updated: time.Now()}
	return nil
}

// Get returns the latest checkpointed state for threadID, if any.
func (m *MemorySaver[S]) Get(_ context.Context, threadID string) (S, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.byThread[threadID]
	return cp.state, ok, nil
}

// Threads returns the IDs with stored checkpoints.
func (m *MemorySaver[S]) Threads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byThread))
	for id := range m.byThread {
		out = append(out, id)
	}
	return out
}
