package store

import (
	"context"
	"fmt"
	"sync"

	"cargroup/internal/model"
)

// Memory is a bounded in-memory store. Once full, the oldest finished run is
// evicted to make room; running groupings are never evicted.
type Memory struct {
	mu      sync.Mutex
	items   map[string]model.Grouping
	order   []string // insertion order, oldest first
	max     int
	onEvict func(id string)
}

func NewMemory(max int, onEvict func(id string)) *Memory {
	if max <= 0 {
		max = 256
	}
	return &Memory{items: map[string]model.Grouping{}, max: max, onEvict: onEvict}
}

func (m *Memory) CreateGrouping(ctx context.Context, g model.Grouping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.items[g.ID]; dup {
		return fmt.Errorf("grouping %s already exists", g.ID)
	}
	for len(m.order) >= m.max {
		if !m.evictOldestDone() {
			return fmt.Errorf("store full: %d groupings still running", len(m.order))
		}
	}
	m.items[g.ID] = g
	m.order = append(m.order, g.ID)
	return nil
}

func (m *Memory) evictOldestDone() bool {
	for i, id := range m.order {
		if !m.items[id].Done() {
			continue
		}
		delete(m.items, id)
		m.order = append(m.order[:i], m.order[i+1:]...)
		if m.onEvict != nil {
			m.onEvict(id)
		}
		return true
	}
	return false
}

func (m *Memory) GetGrouping(ctx context.Context, id string) (model.Grouping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.items[id]
	if !ok {
		return model.Grouping{}, ErrNotFound
	}
	return g, nil
}

// ListGroupings pages newest first. Rows are omitted from list items.
func (m *Memory) ListGroupings(ctx context.Context, cursor string, limit int) ([]model.Grouping, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.order) - 1
	if cursor != "" {
		for i := len(m.order) - 1; i >= 0; i-- {
			if m.order[i] == cursor {
				start = i - 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Grouping{}
	var next string
	for i := start; i >= 0 && len(out) < limit; i-- {
		g := m.items[m.order[i]]
		g.Rows = nil
		out = append(out, g)
		next = g.ID
	}
	if len(out) < limit || start-len(out) < 0 {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) SaveGrouping(ctx context.Context, g model.Grouping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[g.ID]; !ok {
		return ErrNotFound
	}
	m.items[g.ID] = g
	return nil
}
