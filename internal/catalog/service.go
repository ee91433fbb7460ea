// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"libtrack/internal/membership"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, actor membership.Identity, title, author, available, isbn string) (*Book, error)
	EditBook(ctx context.Context, actor membership.Identity, id uuid.UUID, title, author, available, isbn string) error
	DeleteBook(ctx context.Context, actor membership.Identity, id uuid.UUID) error
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)
	Popular(ctx context.Context, limit int) ([]PopularBook, error)
}
