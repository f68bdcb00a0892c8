package settings_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"mysalah/internal/services/settings"
	"mysalah/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *settings.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return settings.New(logger, memory.New(logger))
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	theme, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultTheme, theme)

	language, err := s.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultLanguage, language)
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	require.NoError(t, s.SetTheme(ctx, "dark"))
	require.NoError(t, s.SetLanguage(ctx, "tr"))

	theme, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	language, err := s.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tr", language)
}

// An explicitly stored empty value is a value, not an absence: it must come
// back as is rather than being replaced by the default.
func TestStoredEmptyValueNotDefaulted(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	require.NoError(t, s.SetLanguage(ctx, ""))

	language, err := s.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", language)
}
