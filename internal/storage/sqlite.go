// Package storage persists dedup and undo state in SQLite so that it
// survives process restarts. The store is optional: without a
// configured path the bot keeps this state in memory only.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/kopeckbot/kopeck/internal/model"
)

// SQLiteStore implements the StateStore interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the state database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen_messages (
		key TEXT PRIMARY KEY,
		seen_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS receipts (
		position INTEGER PRIMARY KEY,
		row INTEGER NOT NULL,
		message_key TEXT NOT NULL,
		summary TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate state schema: %w", err)
	}
	return nil
}

// MarkSeen records a processed message key.
func (s *SQLiteStore) MarkSeen(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO seen_messages (key, seen_at) VALUES (?, ?)`,
		key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark message seen: %w", err)
	}
	return nil
}

// LoadSeen returns message keys seen within the last day. Older keys
// would be expired out of the in-memory cache anyway.
func (s *SQLiteStore) LoadSeen(ctx context.Context) ([]string, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM seen_messages WHERE seen_at >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan seen message: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// SaveHistory replaces the persisted receipt stack.
func (s *SQLiteStore) SaveHistory(ctx context.Context, receipts []model.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM receipts`); err != nil {
		return fmt.Errorf("failed to clear receipts: %w", err)
	}

	for i, r := range receipts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (position, row, message_key, summary) VALUES (?, ?, ?, ?)`,
			i, r.Row, r.MessageKey, r.Summary)
		if err != nil {
			return fmt.Errorf("failed to save receipt: %w", err)
		}
	}

	return tx.Commit()
}

// LoadHistory returns the persisted receipt stack, oldest first.
func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]model.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row, message_key, summary FROM receipts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		var r model.Receipt
		if err := rows.Scan(&r.Row, &r.MessageKey, &r.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}

	return receipts, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
