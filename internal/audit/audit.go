// Package audit keeps an append-only trail of lending actions. Entries
// are advisory: a failed write is logged and never fails the operation
// it describes.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Entry is one recorded action.
type Entry struct {
	ID        int64           `json:"id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Action    string          `json:"action"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Log writes and reads the audit trail.
type Log struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewLog(db *sql.DB) *Log {
	return &Log{
		db:     db,
		tracer: otel.Tracer("libtrack/audit"),
	}
}

// Record appends one entry.
func (l *Log) Record(ctx context.Context, actorID uuid.UUID, action string, subjectID uuid.UUID, detail any) error {
	ctx, span := l.tracer.Start(ctx, "audit.record",
		trace.WithAttributes(
			attribute.String("audit.action", action),
			attribute.String("audit.subject_id", subjectID.String()),
		),
	)
	defer span.End()

	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	var entryID int64
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (actor_id, action, subject_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, actorID, action, subjectID, detailJSON, time.Now().UTC()).Scan(&entryID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	span.SetAttributes(attribute.Int64("audit.entry_id", entryID))
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, span := l.tracer.Start(ctx, "audit.recent",
		trace.WithAttributes(attribute.Int("audit.limit", limit)),
	)
	defer span.End()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, actor_id, action, subject_id, detail, created_at
		FROM audit_log
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.SubjectID, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Detail = detail
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	span.SetAttributes(attribute.Int("audit.loaded", len(entries)))
	return entries, nil
}
