// internal/audit/lending.go
package audit

import (
	"context"
	"log"

	"github.com/google/uuid"

	"libtrack/internal/lending"
	"libtrack/internal/membership"
)

// lendingLog decorates a lending service so every successful mutation
// leaves an audit entry. Reads pass through untouched.
type lendingLog struct {
	next lending.Service
	log  *Log
}

// WrapLending returns a lending service that records its mutations.
func WrapLending(next lending.Service, auditLog *Log) lending.Service {
	return &lendingLog{next: next, log: auditLog}
}

func (l *lendingLog) record(ctx context.Context, actorID uuid.UUID, action string, subjectID uuid.UUID, detail any) {
	if err := l.log.Record(ctx, actorID, action, subjectID, detail); err != nil {
		log.Printf("audit entry for %s dropped: %v", action, err)
	}
}

func (l *lendingLog) Borrow(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*lending.Borrow, error) {
	borrow, err := l.next.Borrow(ctx, actor, bookID)
	if err != nil {
		return nil, err
	}
	l.record(ctx, actor.UserID, "loan.borrow", borrow.ID, map[string]any{
		"book_id": bookID,
		"due_at":  borrow.DueAt,
	})
	return borrow, nil
}

func (l *lendingLog) Return(ctx context.Context, actor membership.Identity, bookID uuid.UUID) (*lending.Borrow, error) {
	borrow, err := l.next.Return(ctx, actor, bookID)
	if err != nil {
		return nil, err
	}
	l.record(ctx, actor.UserID, "loan.return", borrow.ID, map[string]any{
		"book_id": bookID,
		"fine":    borrow.FineAmount,
	})
	return borrow, nil
}

func (l *lendingLog) AdminReturn(ctx context.Context, actor membership.Identity, userID, bookID uuid.UUID) (*lending.Borrow, error) {
	borrow, err := l.next.AdminReturn(ctx, actor, userID, bookID)
	if err != nil {
		return nil, err
	}
	l.record(ctx, actor.UserID, "loan.force_return", borrow.ID, map[string]any{
		"user_id": userID,
		"book_id": bookID,
		"fine":    borrow.FineAmount,
	})
	return borrow, nil
}

func (l *lendingLog) SettleFine(ctx context.Context, actor membership.Identity, borrowID uuid.UUID) error {
	if err := l.next.SettleFine(ctx, actor, borrowID); err != nil {
		return err
	}
	l.record(ctx, actor.UserID, "fine.settle", borrowID, nil)
	return nil
}

func (l *lendingLog) ActiveCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.next.ActiveCount(ctx, userID)
}

func (l *lendingLog) UnpaidFinesTotal(ctx context.Context, userID uuid.UUID) (float64, error) {
	return l.next.UnpaidFinesTotal(ctx, userID)
}

func (l *lendingLog) UserBorrows(ctx context.Context, userID uuid.UUID) ([]lending.BorrowView, error) {
	return l.next.UserBorrows(ctx, userID)
}

func (l *lendingLog) UnpaidFines(ctx context.Context) ([]lending.FineView, error) {
	return l.next.UnpaidFines(ctx)
}
