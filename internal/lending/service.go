// internal/lending/service.go
package lending

import (
	"context"

	"github.com/google/uuid"

	"libtrack/internal/membership"
)

// Service defines the interface for the loan service. Every operation
// takes the verified caller explicitly; admin-only operations check the
// actor's admin flag before touching any state.
type Service interface {
	Borrow(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*Borrow, error)
	Return(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*Borrow, error)
	AdminReturn(ctx context.Context, actor membership.Identity, userID, bookID uuid.UUID) (*Borrow, error)
	SettleFine(ctx context.Context, actor membership.Identity, borrowID uuid.UUID) error

	ActiveCount(ctx context.Context, userID uuid.UUID) (int, error)
	UnpaidFinesTotal(ctx context.Context, userID uuid.UUID) (float64, error)
	UserBorrows(ctx context.Context, userID uuid.UUID) ([]BorrowView, error)
	UnpaidFines(ctx context.Context) ([]FineView, error)
}
