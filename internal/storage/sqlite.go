package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite stores the slot in a local SQLite database file.
type SQLite struct {
	db  *sql.DB
	key string
}

// OpenSQLite opens (or creates) the SQLite database at path.
func OpenSQLite(path, key string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating slots table: %w", err)
	}

	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, s.key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading slot %s: %w", s.key, err)
	}
	return text, true, nil
}

func (s *SQLite) Save(ctx context.Context, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		s.key, text,
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", s.key, err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("clearing slot %s: %w", s.key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
