package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mysalah/internal/lib/sl"
	"mysalah/internal/storage"
	"sync"
)

// Storage keeps values in memory. It backs tests and ephemeral runs with the
// same contract as the sqlite store.
type Storage struct {
	logger *slog.Logger
	mu     sync.RWMutex
	values map[string]string
}

func New(logger *slog.Logger) *Storage {
	return &Storage{logger: logger, values: make(map[string]string)}
}

func (s *Storage) Get(ctx context.Context, key string, out any) error {
	const op = "storage.memory.Get"
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("dropping unparseable stored value",
			slog.String("op", op), slog.String("key", key), sl.Err(err))
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) Set(ctx context.Context, key string, value any) error {
	const op = "storage.memory.Set"
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrWriteFailed, err)
	}
	s.mu.Lock()
	s.values[key] = string(raw)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.values = make(map[string]string)
	s.mu.Unlock()
	return nil
}
