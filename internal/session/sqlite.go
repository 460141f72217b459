package session

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/jammming/internal/shared"
)

const createItemsTable = `
	CREATE TABLE IF NOT EXISTS session_items (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
`

// SQLiteStorage is a [Storage] backed by an in-memory SQLite database.
//
// The database lives and dies with the process; it is never opened from a file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens a private in-memory database and creates the items table.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(createItemsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session item %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(key, value string) error {
	return s.SetAll(map[string]string{key: value})
}

func (s *SQLiteStorage) SetAll(items map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range items {
		_, err := tx.Exec(`
			INSERT INTO session_items (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, v)
		if err != nil {
			return fmt.Errorf("failed to write session item %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session items: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec(`DELETE FROM session_items WHERE key = ?`, k); err != nil {
			return fmt.Errorf("failed to delete session item %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session delete: %w", err)
	}
	return nil
}

// Close discards the database and everything in it.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
