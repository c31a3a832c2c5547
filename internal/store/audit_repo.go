package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// AuditRepo handles persistence for AuditRecord entries.
type AuditRepo struct {
	Dialect Dialect
}

// Record inserts an audit record.
func (r *AuditRepo) Record(ctx context.Context, db *sql.DB, rec domain.AuditRecord) error {
	const q = `INSERT INTO audit_records (id, session_id, category, action, detail_json, severity, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, r.Dialect.Rebind(q),
		rec.ID,
		rec.SessionID,
		rec.Category,
		rec.Action,
		rec.DetailJSON,
		rec.Severity,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ListBySession returns all audit records for a session, ordered by creation time.
func (r *AuditRepo) ListBySession(ctx context.Context, db *sql.DB, sessionID string) ([]domain.AuditRecord, error) {
	const q = `SELECT id, session_id, category, action, detail_json, severity, created_at
FROM audit_records
WHERE session_id = ?
ORDER BY created_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var a domain.AuditRecord
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Category, &a.Action,
			&a.DetailJSON, &a.Severity, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
