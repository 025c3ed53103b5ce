package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Repository persists document records. Get and List never return
// tombstoned records.
type Repository interface {
	Create(ctx context.Context, doc *document.Document) (*document.Document, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context, q document.ListQuery) (document.ListResult, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
