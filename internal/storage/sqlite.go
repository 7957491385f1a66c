package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore provides a durable key-value store backed by SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) the store named name inside dataDir
func OpenSQLite(dataDir, name string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return NewSQLiteStore(filepath.Join(dataDir, name+".db"))
}

// NewSQLiteStore opens the SQLite database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Open acquires the store and begins a transaction
func (s *SQLiteStore) Open() (Session, error) {
	s.mu.Lock()

	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteSession{store: s, tx: tx}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

type sqliteSession struct {
	store *SQLiteStore
	tx    *sql.Tx
}

func (ss *sqliteSession) Get(key string, v any) (bool, error) {
	if ss.tx == nil {
		return false, ErrClosed
	}

	var data []byte
	err := ss.tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}

	return true, nil
}

func (ss *sqliteSession) Set(key string, v any) error {
	if ss.tx == nil {
		return ErrClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	query := "INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)"
	if _, err := ss.tx.Exec(query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return nil
}

func (ss *sqliteSession) Has(key string) (bool, error) {
	if ss.tx == nil {
		return false, ErrClosed
	}

	var n int
	if err := ss.tx.QueryRow("SELECT COUNT(*) FROM kv WHERE key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %q: %w", key, err)
	}

	return n > 0, nil
}

func (ss *sqliteSession) Keys() ([]string, error) {
	if ss.tx == nil {
		return nil, ErrClosed
	}

	rows, err := ss.tx.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (ss *sqliteSession) Close() error {
	if ss.tx == nil {
		return ErrClosed
	}
	defer ss.release()

	if err := ss.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func (ss *sqliteSession) Rollback() error {
	if ss.tx == nil {
		return ErrClosed
	}
	defer ss.release()

	if err := ss.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}

	return nil
}

func (ss *sqliteSession) release() {
	ss.tx = nil
	ss.store.mu.Unlock()
}
