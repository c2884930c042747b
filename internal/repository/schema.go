package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT check_phone_or_email CHECK (phone IS NOT NULL OR email IS NOT NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS contact_lists (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contact_list_association (
		contact_id BIGINT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		list_id BIGINT NOT NULL REFERENCES contact_lists(id) ON DELETE CASCADE,
		PRIMARY KEY (contact_id, list_id)
	)`,
	`CREATE TABLE IF NOT EXISTS media_assets (
		id BIGSERIAL PRIMARY KEY,
		file_path TEXT NOT NULL UNIQUE,
		file_type TEXT NOT NULL CHECK (file_type IN ('image', 'video')),
		original_filename TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		content_html TEXT,
		asunto TEXT,
		platform TEXT NOT NULL,
		contacts TEXT,
		fecha_hora TIMESTAMPTZ,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT check_sent_requires_schedule CHECK (sent_at IS NULL OR fecha_hora IS NOT NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS post_media_association (
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		media_id BIGINT NOT NULL REFERENCES media_assets(id) ON DELETE CASCADE,
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (post_id, media_id)
	)`,
	`CREATE TABLE IF NOT EXISTS posting_history (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		platform TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id BIGSERIAL PRIMARY KEY,
		label TEXT NOT NULL,
		prefix TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		last_used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Columns added after the first release. Applied only when missing.
var columnChecks = []struct {
	table  string
	column string
	ddl    string
}{
	{"posts", "dispatch_started_at", "ALTER TABLE posts ADD COLUMN dispatch_started_at TIMESTAMPTZ"},
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS posts_title_key ON posts (title)`,
	`CREATE INDEX IF NOT EXISTS posts_due_idx ON posts (fecha_hora) WHERE sent_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS post_media_association_media_idx ON post_media_association (media_id)`,
	`CREATE INDEX IF NOT EXISTS posting_history_post_idx ON posting_history (post_id)`,
}

// EnsureSchema creates the tables, columns and indexes the application needs.
// Every statement is idempotent so it runs on each process start.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating schema failed: %w", err)
		}
	}

	for _, c := range columnChecks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}

	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating index failed: %w", err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
