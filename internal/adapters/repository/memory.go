package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/arena/internal/domain/model"
)

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []model.Item
	byName map[string]int
	votes  []model.VoteEvent
	ids    map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName: make(map[string]int),
		ids:    make(map[string]struct{}),
	}
}

// ListItems returns items in insertion order.
func (m *MemoryStore) ListItems(_ context.Context) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

// UpsertItems inserts new names and overwrites existing ones in place.
func (m *MemoryStore) UpsertItems(_ context.Context, items []model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if i, ok := m.byName[it.Name]; ok {
			m.items[i] = it
			continue
		}
		m.byName[it.Name] = len(m.items)
		m.items = append(m.items, it)
	}
	return nil
}

// Append stores ev with the next sequence number.
func (m *MemoryStore) Append(_ context.Context, ev model.VoteEvent) (model.VoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID != "" {
		if _, ok := m.ids[ev.ID]; ok {
			return model.VoteEvent{}, fmt.Errorf("%w: %s", ErrDuplicate, ev.ID)
		}
		m.ids[ev.ID] = struct{}{}
	}
	ev.Seq = int64(len(m.votes) + 1)
	m.votes = append(m.votes, ev)
	return ev, nil
}

// ReadAll returns a copy of the log.
func (m *MemoryStore) ReadAll(_ context.Context) ([]model.VoteEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.VoteEvent, len(m.votes))
	copy(out, m.votes)
	return out, nil
}

// ReadRecent returns the last n events, oldest first.
func (m *MemoryStore) ReadRecent(_ context.Context, n int) ([]model.VoteEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return []model.VoteEvent{}, nil
	}
	if n > len(m.votes) {
		n = len(m.votes)
	}
	out := make([]model.VoteEvent, n)
	copy(out, m.votes[len(m.votes)-n:])
	return out, nil
}

// Count returns the number of events.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.votes), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
