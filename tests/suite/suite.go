package suite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"mysalah/internal/app"
	"mysalah/internal/config"
	"mysalah/internal/services/prayer"
)

type Suite struct {
	*testing.T
	Cfg    *config.Config
	App    *app.App
	Remote *FakeRemote
}

// StaticLocations is a LocationProvider pinned to fixed coordinates, enough
// for exercising the location-driven flows without device hardware.
type StaticLocations struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Timezone  string
}

func (s StaticLocations) CurrentPosition(context.Context) (float64, float64, error) {
	return s.Latitude, s.Longitude, nil
}

func (s StaticLocations) ReverseGeocode(context.Context, float64, float64) (string, string, string, error) {
	return s.City, s.Country, s.Timezone, nil
}

var _ prayer.LocationProvider = StaticLocations{}

// New builds a full application wired against a fake remote API and a
// throwaway sqlite file.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()
	t.Parallel()

	remote := NewFakeRemote(t)

	cfg := &config.Config{
		Env:         "local",
		StoragePath: filepath.Join(t.TempDir(), "mysalah.db"),
		API: config.APIConfig{
			BaseURL: remote.URL(),
			Timeout: 5 * time.Second,
		},
		Prayer: config.PrayerConfig{Method: 2, School: 0},
		Stats:  config.StatsConfig{WindowDays: 30},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := app.New(logger, cfg, StaticLocations{
		Latitude:  41.0082,
		Longitude: 28.9784,
		City:      "Istanbul",
		Country:   "Turkey",
		Timezone:  "Europe/Istanbul",
	})
	t.Cleanup(func() { _ = a.Close() })

	return ctx, &Suite{
		T:      t,
		Cfg:    cfg,
		App:    a,
		Remote: remote,
	}
}
