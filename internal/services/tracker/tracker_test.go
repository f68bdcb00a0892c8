package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mysalah/internal/domain/models"
	"mysalah/internal/storage"
	"mysalah/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, at time.Time) (*Service, *memory.Storage) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := memory.New(logger)
	s := New(logger, db)
	s.now = func() time.Time { return at }
	return s, db
}

func completeDay(t *testing.T, s *Service, date string) {
	t.Helper()
	for _, name := range models.PrayerNames {
		_, err := s.Toggle(context.Background(), date, name)
		require.NoError(t, err)
	}
}

func TestDayCreatesDefaultRecord(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	record, err := s.Day(ctx, "2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", record.Date)
	assert.Len(t, record.Completed, len(models.PrayerNames))
	for _, name := range models.PrayerNames {
		assert.False(t, record.Completed[name], name)
	}

	// The default record is persisted, not just returned.
	var persisted models.CompletionRecord
	require.NoError(t, db.Get(ctx, storage.CompletionKey("2024-05-10"), &persisted))
	assert.Equal(t, record.Completed, persisted.Completed)
}

func TestDayRejectsMalformedDate(t *testing.T) {
	s, _ := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	_, err := s.Day(context.Background(), "10/05/2024")
	require.Error(t, err)
}

func TestTogglePersists(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	record, err := s.Toggle(ctx, "2024-05-10", "Fajr")
	require.NoError(t, err)
	assert.True(t, record.Completed["Fajr"])

	record, err = s.Toggle(ctx, "2024-05-10", "Fajr")
	require.NoError(t, err)
	assert.False(t, record.Completed["Fajr"])

	var persisted models.CompletionRecord
	require.NoError(t, db.Get(ctx, storage.CompletionKey("2024-05-10"), &persisted))
	assert.False(t, persisted.Completed["Fajr"])
}

func TestToggleUnknownPrayer(t *testing.T) {
	s, _ := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	_, err := s.Toggle(context.Background(), "2024-05-10", "Brunch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPrayer))
}

func TestWindowTodayFirst(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	completeDay(t, s, "2024-05-10")
	completeDay(t, s, "2024-05-09")
	// 2024-05-08 has a record but one prayer missing.
	completeDay(t, s, "2024-05-08")
	_, err := s.Toggle(ctx, "2024-05-08", "Isha")
	require.NoError(t, err)
	// 2024-05-07 has no record at all.
	completeDay(t, s, "2024-05-06")

	flags, err := s.Window(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, false, true}, flags)

	// Reading the window must not have created the missing day.
	var record models.CompletionRecord
	assert.True(t, errors.Is(db.Get(ctx, storage.CompletionKey("2024-05-07"), &record), storage.ErrNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	completeDay(t, s, "2024-05-10")
	completeDay(t, s, "2024-05-09")
	completeDay(t, s, "2024-05-06")
	completeDay(t, s, "2024-05-05")
	completeDay(t, s, "2024-05-04")

	stats, err := s.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 3, stats.BestStreak)
	assert.Equal(t, 100, stats.TodayPercent)
}

func TestStatsEmptyHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	stats, err := s.Stats(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
	assert.Zero(t, stats.BestStreak)
	assert.Zero(t, stats.TodayPercent)

	// Stats touches today's record, which creates it with defaults.
	record, err := s.Day(ctx, "2024-05-10")
	require.NoError(t, err)
	assert.Zero(t, record.Done())
}

func TestStatsPartialToday(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	_, err := s.Toggle(ctx, "2024-05-10", "Fajr")
	require.NoError(t, err)
	_, err = s.Toggle(ctx, "2024-05-10", "Dhuhr")
	require.NoError(t, err)

	stats, err := s.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak, "partial day does not extend a streak")
	assert.Equal(t, 40, stats.TodayPercent)
}
