package children

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	children map[string]Child
}

// NewMemoryRepository builds an in-memory child store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{children: make(map[string]Child)}
}

func (r *memoryRepository) Create(_ context.Context, child Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children[child.ID] = child
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	child, ok := r.children[id]
	if !ok {
		return Child{}, ErrNotFound
	}
	return child, nil
}

func (r *memoryRepository) ListByParent(_ context.Context, parentID string) ([]Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Child{}
	for _, child := range r.children {
		if child.ParentID == parentID {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, child Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.children[child.ID]; !ok {
		return ErrNotFound
	}
	r.children[child.ID] = child
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.children[id]; !ok {
		return ErrNotFound
	}
	delete(r.children, id)
	return nil
}
