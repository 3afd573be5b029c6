// Package storage provides the SQLite implementation of CursorStore.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements CursorStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reading_cursors (
		user_id TEXT PRIMARY KEY,
		page_index INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert creates or overwrites the cursor for a user.
func (s *SQLiteStore) Upsert(ctx context.Context, userID string, pageIndex int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_cursors (user_id, page_index, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   page_index = excluded.page_index,
		   updated_at = excluded.updated_at`,
		userID, pageIndex, time.Now(),
	)
	return err
}

// Get returns the stored page index for a user, or ErrCursorNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (int, error) {
	var pageIndex int
	err := s.db.QueryRowContext(ctx,
		`SELECT page_index FROM reading_cursors WHERE user_id = ?`, userID,
	).Scan(&pageIndex)
	if err == sql.ErrNoRows {
		return 0, ErrCursorNotFound
	}
	if err != nil {
		return 0, err
	}
	return pageIndex, nil
}

// Delete removes the cursor for a user. Absent cursors are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM reading_cursors WHERE user_id = ?`, userID)
	return err
}

// Count returns the number of stored cursors.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reading_cursors`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
