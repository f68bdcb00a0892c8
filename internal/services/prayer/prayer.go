package prayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mysalah/internal/api"
	"mysalah/internal/domain/models"
	"mysalah/internal/lib/sl"
	"mysalah/internal/storage"

	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("no cached prayer times")

const dateLayout = "2006-01-02"

// Gateway is the slice of the API client the cache needs.
type Gateway interface {
	PrayerTimes(ctx context.Context, latitude, longitude float64, method, school int) (*models.Snapshot, error)
	SaveLocation(ctx context.Context, location *models.Location) error
	SavedLocation(ctx context.Context) (*models.Location, error)
}

// LocationProvider resolves the device position. Geolocation hardware is an
// external collaborator; the service only consumes coordinates.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (latitude, longitude float64, err error)
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (city, country, timezone string, err error)
}

// Result is what screens render: the snapshot plus how fresh it is.
// Offline marks the degraded "showing cached data" case.
type Result struct {
	Snapshot  *models.Snapshot
	FromCache bool
	Offline   bool
}

// Service caches daily prayer timings. A snapshot is valid only on the local
// calendar day it was fetched; crossing midnight invalidates it regardless
// of hours elapsed.
type Service struct {
	logger *slog.Logger
	gw     Gateway
	db     storage.Store
	loc    LocationProvider

	method int
	school int

	now    func() time.Time
	detach func(func())
	group  singleflight.Group

	mu       sync.Mutex
	snapshot *models.Snapshot
	location *models.Location
}

func New(logger *slog.Logger, gw Gateway, db storage.Store, loc LocationProvider, method, school int) *Service {
	return &Service{
		logger: logger,
		gw:     gw,
		db:     db,
		loc:    loc,
		method: method,
		school: school,
		now:    time.Now,
		detach: func(fn func()) { go fn() },
	}
}

// Initialize loads the persisted location and snapshot. An expired snapshot
// is discarded; if a location is known but no valid snapshot remains, one
// fetch is attempted (best-effort, failures are logged).
func (s *Service) Initialize(ctx context.Context) error {
	const op = "prayer.Initialize"
	log := s.logger.With(slog.String("op", op))

	var location models.Location
	if err := s.db.Get(ctx, storage.KeyLocation, &location); err == nil {
		s.mu.Lock()
		s.location = &location
		s.mu.Unlock()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var snapshot models.Snapshot
	var expiresAt time.Time
	haveSnapshot := s.db.Get(ctx, storage.KeyPrayerTimes, &snapshot) == nil
	haveExpiry := s.db.Get(ctx, storage.KeyPrayerExpiry, &expiresAt) == nil

	if haveSnapshot && haveExpiry && s.now().Before(expiresAt) {
		s.mu.Lock()
		s.snapshot = &snapshot
		s.mu.Unlock()
		log.Debug("loaded prayer times from cache", slog.String("date", snapshot.Date))
		return nil
	}
	if haveSnapshot || haveExpiry {
		log.Debug("discarding expired prayer times cache")
		if err := s.db.Remove(ctx, storage.KeyPrayerTimes); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.db.Remove(ctx, storage.KeyPrayerExpiry); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if s.location != nil {
		if _, err := s.FetchPrayerTimes(ctx, location.Latitude, location.Longitude, false); err != nil {
			log.Warn("startup prayer times fetch failed", sl.Err(err))
		}
	}
	return nil
}

// FetchPrayerTimes returns timings for the coordinates, cache-first. With
// forceRefresh false a snapshot fetched today is returned without any remote
// call. Connectivity failures fall back to the last persisted snapshot
// regardless of expiry, marked as a degraded cached result.
func (s *Service) FetchPrayerTimes(ctx context.Context, latitude, longitude float64, forceRefresh bool) (*Result, error) {
	const op = "prayer.FetchPrayerTimes"
	log := s.logger.With(slog.String("op", op))

	if !forceRefresh {
		s.mu.Lock()
		snapshot := s.snapshot
		s.mu.Unlock()
		if snapshot != nil && snapshot.Date == s.today() {
			log.Debug("serving same-day cached prayer times")
			return &Result{Snapshot: snapshot, FromCache: true}, nil
		}
	}

	key := fmt.Sprintf("%.4f,%.4f", latitude, longitude)
	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetchRemote(ctx, latitude, longitude)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return value.(*Result), nil
}

func (s *Service) fetchRemote(ctx context.Context, latitude, longitude float64) (*Result, error) {
	log := s.logger.With(slog.String("op", "prayer.fetchRemote"))

	snapshot, err := s.gw.PrayerTimes(ctx, latitude, longitude, s.method, s.school)
	if err != nil {
		if api.IsConnectivityError(err) {
			var cached models.Snapshot
			if s.db.Get(ctx, storage.KeyPrayerTimes, &cached) == nil {
				log.Warn("offline, showing cached prayer times", sl.Err(err))
				s.mu.Lock()
				s.snapshot = &cached
				s.mu.Unlock()
				return &Result{Snapshot: &cached, FromCache: true, Offline: true}, nil
			}
		}
		// Auth failures arrive here with the gateway's refresh already
		// exhausted; nothing left to recover locally.
		return nil, err
	}

	now := s.now()
	snapshot.Date = now.Format(dateLayout)
	snapshot.LastFetched = now
	snapshot.ExpiresAt = nextMidnight(now)

	if err := s.db.Set(ctx, storage.KeyPrayerTimes, snapshot); err != nil {
		return nil, err
	}
	if err := s.db.Set(ctx, storage.KeyPrayerExpiry, snapshot.ExpiresAt); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	log.Info("prayer times fetched", slog.String("date", snapshot.Date))
	return &Result{Snapshot: snapshot}, nil
}

// FetchWithCurrentLocation resolves the device position, persists the
// combined location record, mirrors it to the server fire-and-forget, and
// delegates to FetchPrayerTimes.
func (s *Service) FetchWithCurrentLocation(ctx context.Context, forceRefresh bool) (*Result, error) {
	const op = "prayer.FetchWithCurrentLocation"
	log := s.logger.With(slog.String("op", op))

	latitude, longitude, err := s.loc.CurrentPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	city, country, timezone, err := s.loc.ReverseGeocode(ctx, latitude, longitude)
	if err != nil {
		// The coordinates are still usable without a resolved address.
		log.Warn("reverse geocode failed", sl.Err(err))
	}

	location := &models.Location{
		Latitude:  latitude,
		Longitude: longitude,
		City:      city,
		Country:   country,
		Timezone:  timezone,
	}
	if err := s.db.Set(ctx, storage.KeyLocation, location); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	s.location = location
	s.mu.Unlock()

	// The local copy is authoritative; the server mirror must never fail
	// the fetch.
	s.detach(func() {
		mirrorCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.gw.SaveLocation(mirrorCtx, location); err != nil {
			log.Warn("location mirror failed", sl.Err(err))
		}
	})

	return s.FetchPrayerTimes(ctx, latitude, longitude, forceRefresh)
}

// Location returns the current location record, refreshing it from the
// server mirror best-effort.
func (s *Service) Location(ctx context.Context) (*models.Location, error) {
	const op = "prayer.Location"
	log := s.logger.With(slog.String("op", op))

	if remote, err := s.gw.SavedLocation(ctx); err == nil {
		if serr := s.db.Set(ctx, storage.KeyLocation, remote); serr != nil {
			return nil, fmt.Errorf("%s: %w", op, serr)
		}
		s.mu.Lock()
		s.location = remote
		s.mu.Unlock()
		return remote, nil
	} else {
		log.Debug("using local location copy", sl.Err(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
	}
	return s.location, nil
}

// ClearCache drops the persisted location and snapshot.
func (s *Service) ClearCache(ctx context.Context) error {
	const op = "prayer.ClearCache"
	for _, key := range []string{storage.KeyPrayerTimes, storage.KeyPrayerExpiry, storage.KeyLocation} {
		if err := s.db.Remove(ctx, key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	s.mu.Lock()
	s.snapshot = nil
	s.location = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) today() string {
	return s.now().Format(dateLayout)
}

// nextMidnight returns the first instant of the following local calendar day.
func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
