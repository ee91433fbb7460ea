// internal/lending/domain.go
package lending

import (
	"time"

	"github.com/google/uuid"

	"libtrack/internal/liberr"
)

// Config carries the lending policy knobs so alternate values can be
// injected in tests instead of hardcoded literals.
type Config struct {
	MaxBorrowsPerUser int
	LoanTermDays      int
	FineRatePerDay    float64
}

// DefaultConfig is the deployed policy: three concurrent borrows per
// user, a 30-day term and 0.60 per day of lateness.
func DefaultConfig() Config {
	return Config{
		MaxBorrowsPerUser: 3,
		LoanTermDays:      30,
		FineRatePerDay:    0.60,
	}
}

// Borrow is a single loan of one book copy to one user. DueAt holds the
// due date while the loan is active and the actual return time once it
// has been returned.
type Borrow struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BookID     uuid.UUID `json:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
	Returned   bool      `json:"returned"`
	FineAmount float64   `json:"fine_amount"`
}

// Fine is a penalty recorded at return time for a late loan. Fines are
// never deleted; settlement flips them to paid.
type Fine struct {
	ID           uuid.UUID `json:"id"`
	BorrowID     uuid.UUID `json:"borrow_id"`
	UserID       uuid.UUID `json:"user_id"`
	Amount       float64   `json:"amount"`
	CalculatedAt time.Time `json:"calculated_at"`
	Paid         bool      `json:"paid"`
}

// BorrowView is a history row for profile display: the loan joined with
// its book title, plus the derived days-left and fine figures. DaysLeft
// is nil for returned loans. For active loans Fine is the penalty that
// would be owed if the book came back right now.
type BorrowView struct {
	BorrowID   uuid.UUID `json:"borrow_id"`
	BookTitle  string    `json:"book_title"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
	Returned   bool      `json:"returned"`
	DaysLeft   *int      `json:"days_left,omitempty"`
	Fine       float64   `json:"fine"`
}

// FineView is the admin settlement listing row.
type FineView struct {
	FineID       uuid.UUID `json:"fine_id"`
	BorrowID     uuid.UUID `json:"borrow_id"`
	Username     string    `json:"username"`
	BookTitle    string    `json:"book_title"`
	Amount       float64   `json:"amount"`
	CalculatedAt time.Time `json:"calculated_at"`
	BorrowedAt   time.Time `json:"borrowed_at"`
}

// Typed borrow refusals, so callers can tell the reasons apart instead
// of a silent no-op. All of them are conflicts against current state.
var (
	ErrLimitReached    = liberr.Conflict("borrow limit reached")
	ErrUnavailable     = liberr.Conflict("no copies available")
	ErrAlreadyBorrowed = liberr.Conflict("book is already borrowed by this user")
)
