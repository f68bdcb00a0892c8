// Package creds owns the persisted credential set: access token, refresh
// token and the cached profile key. The pair is held under one lock so a new
// access token is never observable alongside a stale refresh token.
package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mysalah/internal/lib/sl"
	"mysalah/internal/storage"
	"sync"
)

type Store struct {
	logger *slog.Logger
	db     storage.Store

	mu      sync.Mutex
	access  string
	refresh string
}

func New(logger *slog.Logger, db storage.Store) *Store {
	return &Store{logger: logger, db: db}
}

// Load rehydrates the in-memory pair from persistence. Absent keys are not
// an error; the store simply starts unauthenticated.
func (s *Store) Load(ctx context.Context) error {
	const op = "creds.Load"

	var access, refresh string
	if err := s.db.Get(ctx, storage.KeyAccessToken, &access); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.db.Get(ctx, storage.KeyRefreshToken, &refresh); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
	return nil
}

func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// SetPair persists and installs a new token pair. On a persistence failure
// the in-memory pair is left untouched, so callers never run with
// credentials that would not survive a restart.
func (s *Store) SetPair(ctx context.Context, access, refresh string) error {
	const op = "creds.SetPair"

	if err := s.db.Set(ctx, storage.KeyAccessToken, access); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.db.Set(ctx, storage.KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
	return nil
}

// Clear destroys the whole credential set: both tokens and the cached
// profile. The in-memory pair is dropped even if persistence fails, since a
// half-cleared session must not keep issuing authenticated requests.
func (s *Store) Clear(ctx context.Context) error {
	const op = "creds.Clear"

	s.mu.Lock()
	s.access, s.refresh = "", ""
	s.mu.Unlock()

	var firstErr error
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserProfile} {
		if err := s.db.Remove(ctx, key); err != nil {
			s.logger.Error("failed to remove credential key",
				slog.String("op", op), slog.String("key", key), sl.Err(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", op, err)
			}
		}
	}
	return firstErr
}
