// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered library account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the verified caller passed explicitly into every service
// operation. There is no ambient current-user state.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
}

// UserSummary is the admin listing row: a user plus the number of
// borrows they still hold.
type UserSummary struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	IsAdmin       bool      `json:"is_admin"`
	ActiveBorrows int       `json:"active_borrows"`
}
