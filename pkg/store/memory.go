package store

import (
	"context"
	"sort"
	"sync"

	"onionscope/pkg/errors"
)

// MemoryStore keeps views in memory. It backs serve instances that run
// without a database; contents vanish on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	views map[string]View
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]View)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.views[id]
	if !ok {
		return View{}, errors.New(errors.ErrCodeViewNotFound, "view %s not found", id)
	}
	return v, nil
}

func (s *MemoryStore) Put(ctx context.Context, v View) error {
	if v.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "view id cannot be empty")
	}
	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context, project string) ([]View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []View
	for _, v := range s.views {
		if project == "" || v.Project == project {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return errors.New(errors.ErrCodeViewNotFound, "view %s not found", id)
	}
	delete(s.views, id)
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
