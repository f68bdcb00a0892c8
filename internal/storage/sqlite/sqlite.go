package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mysalah/internal/lib/sl"
	"mysalah/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	logger *slog.Logger
	db     *sql.DB
}

// New opens (and on first run provisions) the on-device store.
func New(logger *slog.Logger, storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{logger: logger, db: db}, nil
}

func (s *Storage) Get(ctx context.Context, key string, out any) error {
	const op = "storage.sqlite.Get"
	row := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// A value that fails to parse is treated as absent.
		s.logger.Warn("dropping unparseable stored value",
			slog.String("op", op), slog.String("key", key), sl.Err(err))
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) Set(ctx context.Context, key string, value any) error {
	const op = "storage.sqlite.Set"
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	stmt, err := s.db.Prepare("INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	defer stmt.Close()
	if _, err := stmt.ExecContext(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	const op = "storage.sqlite.Remove"
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	return nil
}

func (s *Storage) Clear(ctx context.Context) error {
	const op = "storage.sqlite.Clear"
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
