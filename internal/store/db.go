// Package store persists session headers, journals, day snapshots, stat
// deltas and audit records in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects SQL placeholder style and schema.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// schemaSQLite defines the SQLite schema.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	phase           TEXT NOT NULL DEFAULT 'setup',
	seed            INTEGER NOT NULL DEFAULT 0,
	catalog_digest  TEXT NOT NULL DEFAULT '',
	day             INTEGER NOT NULL DEFAULT 0,
	result          TEXT NOT NULL DEFAULT '',
	cause           TEXT NOT NULL DEFAULT '',
	last_event_seq  INTEGER NOT NULL DEFAULT 0,
	created_at_unix INTEGER NOT NULL DEFAULT 0,
	updated_at_unix INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	seq_no       INTEGER NOT NULL,
	day          INTEGER NOT NULL DEFAULT 0,
	event_type   TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	UNIQUE(session_id, seq_no)
);
CREATE INDEX IF NOT EXISTS idx_events_session_seq ON session_events(session_id, seq_no);

CREATE TABLE IF NOT EXISTS day_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	day           INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL DEFAULT '{}',
	checksum      TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session_day ON day_snapshots(session_id, day);

CREATE TABLE IF NOT EXISTS stat_deltas (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	seq_no       INTEGER NOT NULL,
	day          INTEGER NOT NULL,
	field        TEXT NOT NULL,
	before_value REAL NOT NULL DEFAULT 0.0,
	after_value  REAL NOT NULL DEFAULT 0.0,
	delta        REAL NOT NULL DEFAULT 0.0,
	source       TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_stat_deltas_session ON stat_deltas(session_id, seq_no);

CREATE TABLE IF NOT EXISTS audit_records (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	detail_json TEXT NOT NULL DEFAULT '{}',
	severity    TEXT NOT NULL DEFAULT 'info',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records(session_id);
`

// schemaPostgres mirrors schemaSQLite with PostgreSQL types.
const schemaPostgres = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	phase           TEXT NOT NULL DEFAULT 'setup',
	seed            BIGINT NOT NULL DEFAULT 0,
	catalog_digest  TEXT NOT NULL DEFAULT '',
	day             INTEGER NOT NULL DEFAULT 0,
	result          TEXT NOT NULL DEFAULT '',
	cause           TEXT NOT NULL DEFAULT '',
	last_event_seq  BIGINT NOT NULL DEFAULT 0,
	created_at_unix BIGINT NOT NULL DEFAULT 0,
	updated_at_unix BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_events (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT NOT NULL,
	seq_no       BIGINT NOT NULL,
	day          INTEGER NOT NULL DEFAULT 0,
	event_type   TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	created_at   BIGINT NOT NULL,
	UNIQUE(session_id, seq_no)
);
CREATE INDEX IF NOT EXISTS idx_events_session_seq ON session_events(session_id, seq_no);

CREATE TABLE IF NOT EXISTS day_snapshots (
	id            BIGSERIAL PRIMARY KEY,
	session_id    TEXT NOT NULL,
	day           INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL DEFAULT '{}',
	checksum      TEXT NOT NULL DEFAULT '',
	created_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session_day ON day_snapshots(session_id, day);

CREATE TABLE IF NOT EXISTS stat_deltas (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT NOT NULL,
	seq_no       BIGINT NOT NULL,
	day          INTEGER NOT NULL,
	field        TEXT NOT NULL,
	before_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	after_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
	delta        DOUBLE PRECISION NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT '',
	created_at   BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_stat_deltas_session ON stat_deltas(session_id, seq_no);

CREATE TABLE IF NOT EXISTS audit_records (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	detail_json TEXT NOT NULL DEFAULT '{}',
	severity    TEXT NOT NULL DEFAULT 'info',
	created_at  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records(session_id);
`

// DB is an open database handle tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database for the given dialect and migrates it.
// For sqlite the dsn is a file path.
func Open(dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case DialectSQLite, "":
		return NewDB(dsn)
	case DialectPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres database: %w", err)
		}
		if _, err := db.ExecContext(ctx, schemaPostgres); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		return &DB{DB: db, Dialect: DialectPostgres}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the schema migration.
func NewDB(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

// Repos returns the table repositories bound to this database's dialect.
func (d *DB) Repos() Repos {
	return Repos{
		Sessions:  &SessionRepo{Dialect: d.Dialect},
		Events:    &EventRepo{Dialect: d.Dialect},
		Snapshots: &SnapshotRepo{Dialect: d.Dialect},
		Deltas:    &DeltaRepo{Dialect: d.Dialect},
		Audit:     &AuditRepo{Dialect: d.Dialect},
	}
}

// Repos groups the repositories.
type Repos struct {
	Sessions  *SessionRepo
	Events    *EventRepo
	Snapshots *SnapshotRepo
	Deltas    *DeltaRepo
	Audit     *AuditRepo
}

// Rebind rewrites ? placeholders to $n for PostgreSQL.
func (d Dialect) Rebind(q string) string {
	if d != DialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
