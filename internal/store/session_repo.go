package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// SessionRepo handles persistence for SessionRecord headers.
type SessionRepo struct {
	Dialect Dialect
}

// CreateTx inserts a new session within an existing transaction.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec domain.SessionRecord) error {
	const q = `INSERT INTO sessions (session_id, phase, seed, catalog_digest, day, result, cause, last_event_seq, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, r.Dialect.Rebind(q),
		rec.SessionID,
		string(rec.Phase),
		rec.Seed,
		rec.CatalogDigest,
		rec.Day,
		rec.Result,
		rec.Cause,
		rec.LastEventSeq,
		rec.CreatedAtUnix,
		rec.UpdatedAtUnix,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateTx writes the mutable columns of a session. The journal sequence may
// only move forward; a stale write is rejected.
func (r *SessionRepo) UpdateTx(ctx context.Context, tx *sql.Tx, rec domain.SessionRecord) error {
	const q = `UPDATE sessions SET
		phase = ?,
		day = ?,
		result = ?,
		cause = ?,
		last_event_seq = ?,
		updated_at_unix = ?
	WHERE session_id = ? AND last_event_seq <= ?`

	res, err := tx.ExecContext(ctx, r.Dialect.Rebind(q),
		string(rec.Phase),
		rec.Day,
		rec.Result,
		rec.Cause,
		rec.LastEventSeq,
		rec.UpdatedAtUnix,
		rec.SessionID,
		rec.LastEventSeq,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewGameError(domain.ErrStoreWrite.Code,
			fmt.Sprintf("session %s missing or ahead of seq %d", rec.SessionID, rec.LastEventSeq))
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepo) GetByID(ctx context.Context, db *sql.DB, sessionID string) (*domain.SessionRecord, error) {
	const q = `SELECT session_id, phase, seed, catalog_digest, day, result, cause, last_event_seq, created_at_unix, updated_at_unix
FROM sessions WHERE session_id = ?`

	row := db.QueryRowContext(ctx, r.Dialect.Rebind(q), sessionID)

	var s domain.SessionRecord
	var phase string
	err := row.Scan(&s.SessionID, &phase, &s.Seed, &s.CatalogDigest, &s.Day,
		&s.Result, &s.Cause, &s.LastEventSeq, &s.CreatedAtUnix, &s.UpdatedAtUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Phase = domain.Phase(phase)
	return &s, nil
}

// ListRecent returns up to limit sessions, most recently updated first.
func (r *SessionRepo) ListRecent(ctx context.Context, db *sql.DB, limit int) ([]domain.SessionRecord, error) {
	const q = `SELECT session_id, phase, seed, catalog_digest, day, result, cause, last_event_seq, created_at_unix, updated_at_unix
FROM sessions
ORDER BY updated_at_unix DESC, session_id ASC
LIMIT ?`

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(q), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		var s domain.SessionRecord
		var phase string
		if err := rows.Scan(&s.SessionID, &phase, &s.Seed, &s.CatalogDigest, &s.Day,
			&s.Result, &s.Cause, &s.LastEventSeq, &s.CreatedAtUnix, &s.UpdatedAtUnix); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Phase = domain.Phase(phase)
		out = append(out, s)
	}
	return out, rows.Err()
}
