package repository

import (
	"context"
	"errors"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject"
)

var (
	ErrNotFound  = errors.New("subject not found")
	ErrDuplicate = errors.New("subject slug already exists")
)

// Repository persists the subjects catalog. List orders by name,
// case-insensitively.
type Repository interface {
	List(ctx context.Context) ([]subject.Subject, error)
	Get(ctx context.Context, id string) (*subject.Subject, error)
	Create(ctx context.Context, s *subject.Subject) (*subject.Subject, error)
	// Update replaces name, slug and desc.
	Update(ctx context.Context, id string, s *subject.Subject) (*subject.Subject, error)
	Delete(ctx context.Context, id string) error
}
