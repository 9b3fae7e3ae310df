package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

var schema = []struct {
	name string
	ddl  string
}{
	{"domains", `
	CREATE TABLE IF NOT EXISTS domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`},
	{"monitors", `
	CREATE TABLE IF NOT EXISTS monitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_id INTEGER NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		interval_seconds INTEGER NOT NULL DEFAULT 3600,
		enabled INTEGER NOT NULL DEFAULT 1
	);`},
	{"reports", `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_id INTEGER NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
		report_id TEXT NOT NULL UNIQUE,
		total_errors INTEGER NOT NULL,
		services_completed INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"reports index", `
	CREATE INDEX IF NOT EXISTS idx_reports_domain_created ON reports(domain_id, created_at DESC);`},
	{"notification_settings", `
	CREATE TABLE IF NOT EXISTS notification_settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		token TEXT,
		chat_id TEXT,
		webhook_url TEXT,
		notify_on_failure INTEGER NOT NULL DEFAULT 1,
		notify_on_success INTEGER NOT NULL DEFAULT 0
	);`},
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error ping db: %w", err)
	}

	for _, s := range schema {
		if _, err := db.Exec(s.ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating %s: %w", s.name, err)
		}
	}

	return db, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
