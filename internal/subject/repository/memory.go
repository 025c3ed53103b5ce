package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]subject.Subject
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]subject.Subject), now: time.Now}
}

// slugTaken must be called with mu held.
func (m *MemoryRepo) slugTaken(slug, except string) bool {
	for id, s := range m.store {
		if id != except && s.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MemoryRepo) List(ctx context.Context) ([]subject.Subject, error) {
	m.mu.RLock()
	out := make([]subject.Subject, 0, len(m.store))
	for _, s := range m.store {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a == b {
			return out[i].Slug < out[j].Slug
		}
		return a < b
	})
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*subject.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryRepo) Create(ctx context.Context, in *subject.Subject) (*subject.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(in.Slug, "") {
		return nil, ErrDuplicate
	}
	s := *in
	s.ID = uuid.NewString()
	s.CreatedAt = m.now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.store[s.ID] = s
	return &s, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, in *subject.Subject) (*subject.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.slugTaken(in.Slug, id) {
		return nil, ErrDuplicate
	}
	s.Name, s.Slug, s.Desc = in.Name, in.Slug, in.Desc
	s.UpdatedAt = m.now().UTC()
	m.store[id] = s
	return &s, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
