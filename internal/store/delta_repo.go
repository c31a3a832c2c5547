package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// DeltaRepo handles persistence for the stat delta ledger.
type DeltaRepo struct {
	Dialect Dialect
}

// CreateTx inserts delta records within an existing transaction.
func (r *DeltaRepo) CreateTx(ctx context.Context, tx *sql.Tx, deltas []domain.DeltaRecord) error {
	const q = `INSERT INTO stat_deltas (session_id, seq_no, day, field, before_value, after_value, delta, source, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, r.Dialect.Rebind(q))
	if err != nil {
		return fmt.Errorf("prepare delta insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range deltas {
		if _, err := stmt.ExecContext(ctx,
			d.SessionID,
			d.SeqNo,
			d.Day,
			string(d.Field),
			d.Before,
			d.After,
			d.Delta,
			d.Source,
			d.CreatedAt,
		); err != nil {
			return fmt.Errorf("create stat delta: %w", err)
		}
	}
	return nil
}

// ListBySession returns all deltas for a session in the order they were applied.
func (r *DeltaRepo) ListBySession(ctx context.Context, db *sql.DB, sessionID string) ([]domain.DeltaRecord, error) {
	const q = `SELECT session_id, seq_no, day, field, before_value, after_value, delta, source, created_at
FROM stat_deltas
WHERE session_id = ?
ORDER BY seq_no ASC, id ASC`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list stat deltas: %w", err)
	}
	defer rows.Close()

	var deltas []domain.DeltaRecord
	for rows.Next() {
		var d domain.DeltaRecord
		var field string
		if err := rows.Scan(&d.SessionID, &d.SeqNo, &d.Day, &field, &d.Before, &d.After, &d.Delta, &d.Source, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stat delta: %w", err)
		}
		d.Field = domain.Field(field)
		deltas = append(deltas, d)
	}
	return deltas, rows.Err()
}

// SumBySource totals the deltas applied to one field, grouped by source.
func (r *DeltaRepo) SumBySource(ctx context.Context, db *sql.DB, sessionID string, field domain.Field) (map[string]float64, error) {
	const q = `SELECT source, COALESCE(SUM(delta), 0)
FROM stat_deltas
WHERE session_id = ? AND field = ?
GROUP BY source`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), sessionID, string(field))
	if err != nil {
		return nil, fmt.Errorf("sum stat deltas: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var source string
		var total float64
		if err := rows.Scan(&source, &total); err != nil {
			return nil, fmt.Errorf("scan delta sum: %w", err)
		}
		out[source] = total
	}
	return out, rows.Err()
}
