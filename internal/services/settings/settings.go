package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mysalah/internal/storage"
)

const (
	DefaultTheme    = "light"
	DefaultLanguage = "en"
)

// Service stores user preferences that survive logout.
type Service struct {
	logger *slog.Logger
	db     storage.Store
}

func New(logger *slog.Logger, db storage.Store) *Service {
	return &Service{logger: logger, db: db}
}

func (s *Service) Theme(ctx context.Context) (string, error) {
	return s.get(ctx, storage.KeyTheme, DefaultTheme)
}

func (s *Service) SetTheme(ctx context.Context, theme string) error {
	const op = "settings.SetTheme"
	if err := s.db.Set(ctx, storage.KeyTheme, theme); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) Language(ctx context.Context) (string, error) {
	return s.get(ctx, storage.KeyLanguage, DefaultLanguage)
}

func (s *Service) SetLanguage(ctx context.Context, language string) error {
	const op = "settings.SetLanguage"
	if err := s.db.Set(ctx, storage.KeyLanguage, language); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// get falls back only when the key is absent; a stored value is returned as
// is, empty included.
func (s *Service) get(ctx context.Context, key, fallback string) (string, error) {
	const op = "settings.get"
	var value string
	if err := s.db.Get(ctx, key, &value); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("setting absent, using default", slog.String("key", key))
			return fallback, nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}
