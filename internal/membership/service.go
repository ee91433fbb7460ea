// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, actor Identity) ([]UserSummary, error)
	UpdateUser(ctx context.Context, actor Identity, id uuid.UUID, username string, isAdmin bool, newPassword string) error
	ChangePassword(ctx context.Context, actor Identity, newPassword string) error
	DeleteUser(ctx context.Context, actor Identity, id uuid.UUID) error
}
