// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a catalog entry and its current availability.
type Book struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	AddedAt      time.Time `json:"added_at"`
	Available    int       `json:"available"`
	LastEditedAt time.Time `json:"last_edited_at"`
	ISBN         string    `json:"isbn,omitempty"`
}

// PopularBook is a reporting row: a book with its all-time borrow count.
type PopularBook struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	BorrowCount int       `json:"borrow_count"`
}
