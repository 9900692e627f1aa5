package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schema bootstraps the three tables the service owns.  Timestamps are stored
// as UTC unix milliseconds.  List-valued profile fields are JSON text.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                    TEXT PRIMARY KEY,
    email                 TEXT NOT NULL UNIQUE,
    password_hash         TEXT NOT NULL,
    name                  TEXT NOT NULL DEFAULT '',
    phone                 TEXT NOT NULL DEFAULT '',
    role                  TEXT NOT NULL DEFAULT 'Farmer',
    points                INTEGER NOT NULL DEFAULT 0,
    level                 INTEGER NOT NULL DEFAULT 1,
    streak                INTEGER NOT NULL DEFAULT 0,
    badges                TEXT NOT NULL DEFAULT '[]',
    location              TEXT NOT NULL DEFAULT '',
    soil_type             TEXT NOT NULL DEFAULT '',
    crop_preferences      TEXT NOT NULL DEFAULT '[]',
    sustainability_goals  TEXT NOT NULL DEFAULT '[]',
    irrigation_preference TEXT NOT NULL DEFAULT '',
    language              TEXT NOT NULL DEFAULT 'en',
    avatar                TEXT NOT NULL DEFAULT '',
    onboarding_complete   INTEGER NOT NULL DEFAULT 0,
    created_at            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    token      TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON refresh_tokens(expires_at);

CREATE TABLE IF NOT EXISTS activities (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    points     INTEGER NOT NULL DEFAULT 0,
    payload    TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, created_at);
`

// Open connects to the SQLite database at path, applies pragmas suitable for
// a single-process server (WAL, foreign keys, busy timeout) and bootstraps
// the schema.  Use ":memory:" for throwaway test databases.
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite allows a single writer; a second connection would only queue on
	// the busy timeout.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return db, nil
}
