// internal/lending/implementation.go
package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libtrack/internal/liberr"
	"libtrack/internal/membership"
	"libtrack/internal/store"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	cfg    Config
	tracer trace.Tracer

	borrowCounter metric.Int64Counter
	returnCounter metric.Int64Counter

	now func() time.Time
}

// NewService creates a new loan service instance with the given policy.
func NewService(db *sql.DB, cfg Config) Service {
	meter := otel.Meter("libtrack/lending")
	borrowCounter, _ := meter.Int64Counter("lending.borrows",
		metric.WithDescription("Completed borrow operations"))
	returnCounter, _ := meter.Int64Counter("lending.returns",
		metric.WithDescription("Completed return operations"))

	return &service{
		db:            db,
		cfg:           cfg,
		tracer:        otel.Tracer("libtrack/lending"),
		borrowCounter: borrowCounter,
		returnCounter: returnCounter,
		now:           time.Now,
	}
}

// Borrow lends one copy of a book to the acting user. The availability
// check, the per-user limit and the one-open-borrow-per-pair rule are
// all evaluated inside a single transaction holding a lock on the book
// row, so two concurrent borrows of the last copy cannot both succeed.
func (s *service) Borrow(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*Borrow, error) {
	ctx, span := s.tracer.Start(ctx, "lending.borrow",
		trace.WithAttributes(
			attribute.String("user.id", actor.UserID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var available int
	err = tx.QueryRowContext(ctx, `
		SELECT available FROM books WHERE id = $1 FOR UPDATE
	`, bookID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, liberr.NotFound("book not found")
		}
		return nil, liberr.Storage(fmt.Errorf("lock book: %w", err))
	}

	// The user row lock serializes concurrent borrows by the same user;
	// without it two transactions for different books could both read a
	// count below the limit and both commit.
	var lockedUser uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users WHERE id = $1 FOR UPDATE
	`, actor.UserID).Scan(&lockedUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, liberr.NotFound("user not found")
		}
		return nil, liberr.Storage(fmt.Errorf("lock user: %w", err))
	}

	var activeCount int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND NOT returned
	`, actor.UserID).Scan(&activeCount)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("count active borrows: %w", err))
	}
	if activeCount >= s.cfg.MaxBorrowsPerUser {
		return nil, ErrLimitReached
	}

	var alreadyBorrowed bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM borrows WHERE user_id = $1 AND book_id = $2 AND NOT returned
		)
	`, actor.UserID, bookID).Scan(&alreadyBorrowed)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("check open borrow: %w", err))
	}
	if alreadyBorrowed {
		return nil, ErrAlreadyBorrowed
	}

	if available <= 0 {
		return nil, ErrUnavailable
	}

	now := s.now().UTC()
	borrow := &Borrow{
		ID:         uuid.New(),
		UserID:     actor.UserID,
		BookID:     bookID,
		BorrowedAt: now,
		DueAt:      now.AddDate(0, 0, s.cfg.LoanTermDays),
		Returned:   false,
		FineAmount: 0,
	}

	// The availability guard re-asserts available > 0 at the point of the
	// decrement, so a missed copy surfaces as a refusal rather than a
	// check-constraint error.
	res, err := tx.ExecContext(ctx, `
		UPDATE books SET available = available - 1, last_edited_at = $1
		WHERE id = $2 AND available > 0
	`, now, bookID)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("decrement availability: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUnavailable
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO borrows (id, user_id, book_id, borrowed_at, due_at, returned, fine_amount)
		VALUES ($1, $2, $3, $4, $5, FALSE, 0)
	`, borrow.ID, borrow.UserID, borrow.BookID, borrow.BorrowedAt, borrow.DueAt)
	if err != nil {
		// The partial unique index catches a racing borrow of the pair.
		if store.IsUniqueViolation(err) {
			return nil, ErrAlreadyBorrowed
		}
		return nil, liberr.Storage(fmt.Errorf("insert borrow: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("commit transaction: %w", err))
	}

	s.borrowCounter.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("borrow.success", true))
	return borrow, nil
}

// Return closes the actor's open borrow of the given book, restores the
// copy to the shelf and records an unpaid fine when the loan came back
// late.
func (s *service) Return(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*Borrow, error) {
	ctx, span := s.tracer.Start(ctx, "lending.return",
		trace.WithAttributes(
			attribute.String("user.id", actor.UserID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	return s.returnByPair(ctx, actor.UserID, bookID)
}

// AdminReturn is the administrative force-return: it closes another
// user's open borrow, identified by user and book (book identity, not
// title, so duplicate titles stay unambiguous).
func (s *service) AdminReturn(ctx context.Context, actor membership.Identity, userID, bookID uuid.UUID) (*Borrow, error) {
	if !actor.IsAdmin {
		return nil, liberr.Unauthorized("administrator access required")
	}

	ctx, span := s.tracer.Start(ctx, "lending.admin_return",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	return s.returnByPair(ctx, userID, bookID)
}

func (s *service) returnByPair(ctx context.Context, userID, bookID uuid.UUID) (*Borrow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var borrow Borrow
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, borrowed_at, due_at, returned, fine_amount
		FROM borrows
		WHERE user_id = $1 AND book_id = $2 AND NOT returned
		FOR UPDATE
	`, userID, bookID).Scan(
		&borrow.ID,
		&borrow.UserID,
		&borrow.BookID,
		&borrow.BorrowedAt,
		&borrow.DueAt,
		&borrow.Returned,
		&borrow.FineAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, liberr.NotFound("no active borrow for this book")
		}
		return nil, liberr.Storage(fmt.Errorf("lock borrow: %w", err))
	}

	if err := s.closeBorrow(ctx, tx, &borrow); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("commit transaction: %w", err))
	}

	s.returnCounter.Add(ctx, 1)
	return &borrow, nil
}

// closeBorrow applies the return effect to a borrow row the caller has
// already locked: restore availability, flip the borrow to returned
// with the return instant in the due-date field, snapshot the fine, and
// record an unpaid fine when the amount is positive. Already-returned
// borrows are left untouched, so a repeated return cannot
// double-increment availability or duplicate a fine.
func (s *service) closeBorrow(ctx context.Context, tx *sql.Tx, borrow *Borrow) error {
	if borrow.Returned {
		return nil
	}

	now := s.now().UTC()
	fine := CalculateFine(borrow.DueAt, now, s.cfg.FineRatePerDay)

	_, err := tx.ExecContext(ctx, `
		UPDATE books SET available = available + 1, last_edited_at = $1 WHERE id = $2
	`, now, borrow.BookID)
	if err != nil {
		return liberr.Storage(fmt.Errorf("increment availability: %w", err))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE borrows SET returned = TRUE, due_at = $1, fine_amount = $2 WHERE id = $3
	`, now, fine, borrow.ID)
	if err != nil {
		return liberr.Storage(fmt.Errorf("close borrow: %w", err))
	}

	if fine > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fines (id, borrow_id, user_id, amount, calculated_at, paid)
			VALUES ($1, $2, $3, $4, $5, FALSE)
		`, uuid.New(), borrow.ID, borrow.UserID, fine, now)
		if err != nil {
			return liberr.Storage(fmt.Errorf("insert fine: %w", err))
		}
	}

	borrow.Returned = true
	borrow.DueAt = now
	borrow.FineAmount = fine
	return nil
}

// SettleFine marks every fine of a borrow as paid. Settling a borrow
// that is still out also force-closes it first, with the fine computed
// at settlement time: paying implicitly returns the book.
func (s *service) SettleFine(ctx context.Context, actor membership.Identity, borrowID uuid.UUID) error {
	if !actor.IsAdmin {
		return liberr.Unauthorized("administrator access required")
	}

	ctx, span := s.tracer.Start(ctx, "lending.settle_fine",
		trace.WithAttributes(attribute.String("borrow.id", borrowID.String())),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return liberr.Storage(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var borrow Borrow
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, borrowed_at, due_at, returned, fine_amount
		FROM borrows
		WHERE id = $1
		FOR UPDATE
	`, borrowID).Scan(
		&borrow.ID,
		&borrow.UserID,
		&borrow.BookID,
		&borrow.BorrowedAt,
		&borrow.DueAt,
		&borrow.Returned,
		&borrow.FineAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return liberr.NotFound("borrow not found")
		}
		return liberr.Storage(fmt.Errorf("lock borrow: %w", err))
	}

	wasOpen := !borrow.Returned
	if err := s.closeBorrow(ctx, tx, &borrow); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE fines SET paid = TRUE WHERE borrow_id = $1
	`, borrowID)
	if err != nil {
		return liberr.Storage(fmt.Errorf("settle fines: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return liberr.Storage(fmt.Errorf("commit transaction: %w", err))
	}

	if wasOpen {
		s.returnCounter.Add(ctx, 1)
	}
	return nil
}

// ActiveCount returns the number of borrows a user still holds.
func (s *service) ActiveCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND NOT returned
	`, userID).Scan(&count)
	if err != nil {
		return 0, liberr.Storage(fmt.Errorf("count active borrows: %w", err))
	}
	return count, nil
}

// UnpaidFinesTotal returns the sum of a user's outstanding fines.
func (s *service) UnpaidFinesTotal(ctx context.Context, userID uuid.UUID) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM fines WHERE user_id = $1 AND NOT paid
	`, userID).Scan(&total)
	if err != nil {
		return 0, liberr.Storage(fmt.Errorf("sum unpaid fines: %w", err))
	}
	return total, nil
}

// UserBorrows returns a user's borrow history, newest first, with the
// derived days-left and fine figures for display.
func (s *service) UserBorrows(ctx context.Context, userID uuid.UUID) ([]BorrowView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT br.id, b.title, br.borrowed_at, br.due_at, br.returned, br.fine_amount
		FROM borrows br
		JOIN books b ON br.book_id = b.id
		WHERE br.user_id = $1
		ORDER BY br.borrowed_at DESC
	`, userID)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("query borrows: %w", err))
	}
	defer rows.Close()

	now := s.now().UTC()
	var views []BorrowView
	for rows.Next() {
		var v BorrowView
		if err := rows.Scan(&v.BorrowID, &v.BookTitle, &v.BorrowedAt, &v.DueAt, &v.Returned, &v.Fine); err != nil {
			return nil, liberr.Storage(fmt.Errorf("scan borrow: %w", err))
		}
		if !v.Returned {
			left := DaysLeft(v.DueAt, now)
			v.DaysLeft = &left
			v.Fine = CalculateFine(v.DueAt, now, s.cfg.FineRatePerDay)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("iterate borrows: %w", err))
	}

	return views, nil
}

// UnpaidFines lists outstanding fines for the settlement page, joined
// with usernames and book titles.
func (s *service) UnpaidFines(ctx context.Context) ([]FineView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.borrow_id, u.username, b.title, f.amount, f.calculated_at, br.borrowed_at
		FROM fines f
		JOIN users u ON f.user_id = u.id
		JOIN borrows br ON f.borrow_id = br.id
		JOIN books b ON br.book_id = b.id
		WHERE NOT f.paid
		ORDER BY f.calculated_at DESC
	`)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("query unpaid fines: %w", err))
	}
	defer rows.Close()

	var fines []FineView
	for rows.Next() {
		var f FineView
		if err := rows.Scan(&f.FineID, &f.BorrowID, &f.Username, &f.BookTitle, &f.Amount, &f.CalculatedAt, &f.BorrowedAt); err != nil {
			return nil, liberr.Storage(fmt.Errorf("scan fine: %w", err))
		}
		fines = append(fines, f)
	}
	if err := rows.Err(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("iterate fines: %w", err))
	}

	return fines, nil
}
