package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
)

// MemoryRepo is an in-memory repository for development and unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document), now: time.Now}
}

func clone(d *document.Document) *document.Document {
	c := *d
	if d.PageCount != nil {
		n := *d.PageCount
		c.PageCount = &n
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (m *MemoryRepo) Create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clone(doc)
	c.ID = uuid.NewString()
	c.CreatedAt = m.now().UTC()
	c.DeletedAt = nil
	m.store[c.ID] = c
	return clone(c), nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok && d.DeletedAt == nil {
		return clone(d), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context, q document.ListQuery) (document.ListResult, error) {
	q = q.Normalize(12)
	m.mu.RLock()
	matched := make([]*document.Document, 0, len(m.store))
	for _, d := range m.store {
		if d.DeletedAt == nil && matches(d, q) {
			matched = append(matched, d)
		}
	}
	m.mu.RUnlock()

	sortDocuments(matched, q.Sort)

	res := document.ListResult{Items: []document.Summary{}, Total: int64(len(matched))}
	start := q.Offset()
	if start >= len(matched) {
		return res, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	for _, d := range matched[start:end] {
		res.Items = append(res.Items, clone(d).Summarize())
	}
	return res, nil
}

func matches(d *document.Document, q document.ListQuery) bool {
	if q.Subject != "" && !strings.EqualFold(d.Subject, q.Subject) {
		return false
	}
	if q.Q != "" {
		needle := strings.ToLower(q.Q)
		if !strings.Contains(strings.ToLower(d.Subject), needle) && !strings.Contains(strings.ToLower(d.FileName), needle) {
			return false
		}
	}
	return true
}

func sortDocuments(docs []*document.Document, order string) {
	newest := func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		switch order {
		case document.SortOldest:
			return newest(j, i)
		case document.SortSubjectAsc, document.SortSubjectDesc:
			a, b := strings.ToLower(docs[i].Subject), strings.ToLower(docs[j].Subject)
			if a == b {
				return newest(i, j)
			}
			if order == document.SortSubjectAsc {
				return a < b
			}
			return a > b
		default:
			return newest(i, j)
		}
	})
}

func (m *MemoryRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok || d.DeletedAt != nil {
		return ErrNotFound
	}
	t := at.UTC()
	d.DeletedAt = &t
	return nil
}

// Delete removes the record, tombstoned or not.
func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// Len returns the number of stored records, including tombstones.
func (m *MemoryRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
