package app

import (
	"log/slog"

	"mysalah/internal/api"
	"mysalah/internal/api/aladhan"
	"mysalah/internal/config"
	"mysalah/internal/creds"
	"mysalah/internal/services/prayer"
	"mysalah/internal/services/session"
	"mysalah/internal/services/settings"
	"mysalah/internal/services/tracker"
	"mysalah/internal/storage/sqlite"
)

type App struct {
	Session  *session.Manager
	Prayers  *prayer.Service
	Tracker  *tracker.Service
	Settings *settings.Service
	Aladhan  *aladhan.Client
	Storage  *sqlite.Storage
}

func New(logger *slog.Logger, cfg *config.Config, locations prayer.LocationProvider) *App {
	store, err := sqlite.New(logger, cfg.StoragePath)
	if err != nil {
		panic(err)
	}

	credentials := creds.New(logger, store)
	client := api.New(logger, cfg.API.BaseURL, cfg.API.Timeout, credentials)

	return &App{
		Session:  session.New(logger, client, credentials, store),
		Prayers:  prayer.New(logger, client, store, locations, cfg.Prayer.Method, cfg.Prayer.School),
		Tracker:  tracker.New(logger, store),
		Settings: settings.New(logger, store),
		Aladhan:  aladhan.New(logger, cfg.Aladhan.BaseURL, cfg.API.Timeout),
		Storage:  store,
	}
}

func (a *App) Close() error {
	return a.Storage.Close()
}
