package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// SnapshotRepo handles persistence for DaySnapshot records.
type SnapshotRepo struct {
	Dialect Dialect
}

// SaveTx inserts a day snapshot within an existing transaction.
func (r *SnapshotRepo) SaveTx(ctx context.Context, tx *sql.Tx, snap domain.DaySnapshot) error {
	const q = `INSERT INTO day_snapshots (session_id, day, snapshot_json, checksum, created_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, r.Dialect.Rebind(q),
		snap.SessionID,
		snap.Day,
		snap.SnapshotJSON,
		snap.Checksum,
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the snapshot of the latest day recorded for a session.
// Returns nil if no snapshot exists.
func (r *SnapshotRepo) GetLatest(ctx context.Context, db *sql.DB, sessionID string) (*domain.DaySnapshot, error) {
	const q = `SELECT id, session_id, day, snapshot_json, checksum, created_at
FROM day_snapshots
WHERE session_id = ?
ORDER BY day DESC, id DESC
LIMIT 1`

	row := db.QueryRowContext(ctx, r.Dialect.Rebind(q), sessionID)

	var s domain.DaySnapshot
	err := row.Scan(&s.ID, &s.SessionID, &s.Day, &s.SnapshotJSON, &s.Checksum, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return &s, nil
}

// ListBySession returns every snapshot of a session ordered by day.
func (r *SnapshotRepo) ListBySession(ctx context.Context, db *sql.DB, sessionID string) ([]domain.DaySnapshot, error) {
	const q = `SELECT id, session_id, day, snapshot_json, checksum, created_at
FROM day_snapshots
WHERE session_id = ?
ORDER BY day ASC, id ASC`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.DaySnapshot
	for rows.Next() {
		var s domain.DaySnapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Day, &s.SnapshotJSON, &s.Checksum, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
