package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/yt-enrich/errors"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    playback_id TEXT NOT NULL DEFAULT '',
    track_id TEXT NOT NULL DEFAULT '',
    track_status TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    external_id TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_jobs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    video_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    leased_at DATETIME,
    run_after DATETIME,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_steps (
    job_id TEXT NOT NULL,
    step TEXT NOT NULL,
    output TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (job_id, step)
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_videos_user ON videos(user_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON workflow_jobs(status, run_after);
CREATE INDEX IF NOT EXISTS idx_jobs_video ON workflow_jobs(video_id);
`

func InitDB(dbPath string) (*sql.DB, error) {
	const op = "sqlite.InitDB"

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	// Set pragmas for better performance
	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func configurePragmas(db *sql.DB) error {
	const op = "sqlite.configurePragmas"

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}

	return nil
}

func execSchema(db *sql.DB) error {
	const op = "sqlite.execSchema"

	statements := strings.Split(schema, ";")

	tx, err := db.Begin()
	if err != nil {
		return errors.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := tx.Exec(stmt); err != nil {
			return errors.Internal(
				op,
				err,
				fmt.Sprintf("failed to execute schema statement: %s", stmt),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "failed to commit schema transaction")
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
