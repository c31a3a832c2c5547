package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// EventRepo handles persistence for SessionEvent records.
type EventRepo struct {
	Dialect Dialect
}

// AppendTx inserts a session event within an existing transaction.
func (r *EventRepo) AppendTx(ctx context.Context, tx *sql.Tx, event domain.SessionEvent) error {
	const q = `INSERT INTO session_events (session_id, seq_no, day, event_type, payload_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, r.Dialect.Rebind(q),
		event.SessionID,
		event.SeqNo,
		event.Day,
		event.EventType,
		event.PayloadJSON,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListBySession returns events for a session with sequence numbers greater
// than sinceSeq, ordered by sequence number ascending.
func (r *EventRepo) ListBySession(ctx context.Context, db *sql.DB, sessionID string, sinceSeq int64) ([]domain.SessionEvent, error) {
	const q = `SELECT id, session_id, seq_no, day, event_type, payload_json, created_at
FROM session_events
WHERE session_id = ? AND seq_no > ?
ORDER BY seq_no ASC`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), sessionID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.SessionEvent
	for rows.Next() {
		var e domain.SessionEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SeqNo, &e.Day, &e.EventType, &e.PayloadJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
