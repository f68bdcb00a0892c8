package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mysalah/internal/domain/models"
	"mysalah/internal/lib/streak"
	"mysalah/internal/storage"
)

var ErrUnknownPrayer = errors.New("unknown prayer name")

const dateLayout = "2006-01-02"

// Stats is the N-day summary derived from completion records.
type Stats struct {
	CurrentStreak int
	BestStreak    int
	TodayPercent  int
}

// Service owns the per-day completion records. Records are created with
// defaults on first access, mutated by Toggle, and never deleted.
type Service struct {
	logger *slog.Logger
	db     storage.Store
	now    func() time.Time
}

func New(logger *slog.Logger, db storage.Store) *Service {
	return &Service{logger: logger, db: db, now: time.Now}
}

// Day returns the completion record for a YYYY-MM-DD date, creating and
// persisting the default record on first access.
func (s *Service) Day(ctx context.Context, date string) (*models.CompletionRecord, error) {
	const op = "tracker.Day"

	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%s: invalid date %q: %w", op, date, err)
	}

	var record models.CompletionRecord
	err := s.db.Get(ctx, storage.CompletionKey(date), &record)
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record = models.CompletionRecord{Date: date, Completed: make(map[string]bool, len(models.PrayerNames))}
	for _, name := range models.PrayerNames {
		record.Completed[name] = false
	}
	if err := s.db.Set(ctx, storage.CompletionKey(date), &record); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Debug("created completion record", slog.String("op", op), slog.String("date", date))
	return &record, nil
}

// Toggle flips one prayer's completed flag for the date and persists the
// record.
func (s *Service) Toggle(ctx context.Context, date, prayer string) (*models.CompletionRecord, error) {
	const op = "tracker.Toggle"

	if !validPrayer(prayer) {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownPrayer, prayer)
	}

	record, err := s.Day(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record.Completed[prayer] = !record.Completed[prayer]
	if err := s.db.Set(ctx, storage.CompletionKey(date), record); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("prayer toggled",
		slog.String("op", op),
		slog.String("date", date),
		slog.String("prayer", prayer),
		slog.Bool("completed", record.Completed[prayer]))
	return record, nil
}

// Window returns today-first fully-completed flags for the last n days.
// Days without a record count as not completed; reading the window never
// creates records.
func (s *Service) Window(ctx context.Context, n int) ([]bool, error) {
	const op = "tracker.Window"

	flags := make([]bool, n)
	today := s.now()
	for i := 0; i < n; i++ {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		var record models.CompletionRecord
		err := s.db.Get(ctx, storage.CompletionKey(date), &record)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		flags[i] = record.FullyCompleted()
	}
	return flags, nil
}

// Stats computes streaks over the last n days plus today's completion
// percentage.
func (s *Service) Stats(ctx context.Context, n int) (*Stats, error) {
	const op = "tracker.Stats"

	flags, err := s.Window(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	today, err := s.Day(ctx, s.now().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Stats{
		CurrentStreak: streak.Current(flags),
		BestStreak:    streak.Best(flags),
		TodayPercent:  streak.CompletionPercent(today.Done(), len(models.PrayerNames)),
	}, nil
}

func validPrayer(name string) bool {
	for _, p := range models.PrayerNames {
		if p == name {
			return true
		}
	}
	return false
}
