package parent

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	parents    map[string]Parent
	byUsername map[string]string
}

// NewMemoryRepository builds an in-memory parent store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		parents:    make(map[string]Parent),
		byUsername: make(map[string]string),
	}
}

func usernameKey(username string) string {
	return strings.ToLower(username)
}

func (r *memoryRepository) Create(_ context.Context, p Parent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[usernameKey(p.Username)]; exists {
		return ErrUsernameTaken
	}
	r.parents[p.ID] = p
	r.byUsername[usernameKey(p.Username)] = p.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Parent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parents[id]
	if !ok {
		return Parent{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Parent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return Parent{}, ErrNotFound
	}
	return r.parents[id], nil
}

func (r *memoryRepository) Update(_ context.Context, p Parent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parents[p.ID]; !ok {
		return ErrNotFound
	}
	r.parents[p.ID] = p
	return nil
}

func (r *memoryRepository) IncrementTokenVersion(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parents[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.TokenVersion++
	r.parents[id] = p
	return p.TokenVersion, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parents[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.parents, id)
	delete(r.byUsername, usernameKey(p.Username))
	return nil
}
