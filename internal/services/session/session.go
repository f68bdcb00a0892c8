package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mysalah/internal/api"
	"mysalah/internal/domain/models"
	libjwt "mysalah/internal/lib/jwt"
	"mysalah/internal/lib/sl"
	"mysalah/internal/storage"
)

// Status is the authentication state visible to screens.
type Status int

const (
	Unauthenticated Status = iota
	Authenticating
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

var (
	ErrValidation = errors.New("validation failed")
	ErrNetwork    = errors.New("network failed")
)

// AuthError carries the human-readable message screens render verbatim.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Gateway is the slice of the API client the session manager needs.
type Gateway interface {
	Register(ctx context.Context, email, password, fullName string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Me(ctx context.Context) (*models.Profile, error)
	Logout(ctx context.Context) error
}

// Credentials is the session manager's view of the credential store.
type Credentials interface {
	Load(ctx context.Context) error
	AccessToken() string
	SetPair(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// Manager owns the authentication state machine and the credential set.
type Manager struct {
	logger *slog.Logger
	gw     Gateway
	creds  Credentials
	db     storage.Store
	now    func() time.Time

	mu      sync.Mutex
	status  Status
	profile *models.Profile
	subs    []func(Status)
}

func New(logger *slog.Logger, gw Gateway, creds Credentials, db storage.Store) *Manager {
	return &Manager{
		logger: logger,
		gw:     gw,
		creds:  creds,
		db:     db,
		now:    time.Now,
		status: Unauthenticated,
	}
}

// Subscribe registers a callback invoked on every status transition.
func (m *Manager) Subscribe(fn func(Status)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// CurrentUser returns the locally cached profile, which may be stale between
// profile fetches.
func (m *Manager) CurrentUser() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// AccessTokenExpired reports whether the held access token is absent or past
// its unverified exp claim. A display hint only: requests never block on it,
// staleness is handled by the 401 path.
func (m *Manager) AccessTokenExpired() bool {
	access := m.creds.AccessToken()
	if access == "" {
		return true
	}
	return libjwt.Expired(access, m.now())
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	subs := make([]func(Status), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

// Initialize rehydrates the session on process start. If a persisted
// credential set and profile exist the manager enters Authenticated
// optimistically, then revalidates against the server. Only an
// authentication failure (after the client's own refresh attempt) forces the
// session closed; connectivity failures leave the optimistic state alone.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "session.Initialize"
	log := m.logger.With(slog.String("op", op))

	if err := m.creds.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var profile models.Profile
	if err := m.db.Get(ctx, storage.KeyUserProfile, &profile); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("no persisted session")
		return nil
	}

	access := m.creds.AccessToken()
	if access == "" {
		log.Debug("profile present but no access token, staying signed out")
		return nil
	}

	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
	m.setStatus(Authenticated)

	if m.AccessTokenExpired() {
		log.Debug("persisted access token already expired, first request will refresh")
	}

	fresh, err := m.gw.Me(ctx)
	if err != nil {
		if api.IsAuthError(err) || errors.Is(err, api.ErrNoRefreshToken) {
			log.Warn("session revalidation failed, signing out", sl.Err(err))
			m.forceLogout(ctx)
			return nil
		}
		log.Warn("profile revalidation skipped", sl.Err(err))
		return nil
	}

	if err := m.db.Set(ctx, storage.KeyUserProfile, fresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.mu.Lock()
	m.profile = fresh
	m.mu.Unlock()

	log.Info("session restored", slog.String("email", fresh.Email))
	return nil
}

// Login authenticates, persists the token pair, then fetches and persists
// the profile. Any step's failure leaves the session Unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	const op = "session.Login"
	log := m.logger.With(slog.String("op", op), slog.String("email", email))

	if email == "" || password == "" {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	m.setStatus(Authenticating)
	log.Info("login request")

	pair, err := m.gw.Login(ctx, email, password)
	if err != nil {
		m.setStatus(Unauthenticated)
		log.Warn("login failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, m.classify(err, "Login failed"))
	}

	if err := m.creds.SetPair(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		m.setStatus(Unauthenticated)
		return fmt.Errorf("%s: %w", op, err)
	}

	profile, err := m.gw.Me(ctx)
	if err != nil {
		m.setStatus(Unauthenticated)
		log.Warn("profile fetch after login failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, m.classify(err, "Login failed"))
	}
	if err := m.db.Set(ctx, storage.KeyUserProfile, profile); err != nil {
		m.setStatus(Unauthenticated)
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	m.setStatus(Authenticated)

	log.Info("user logged in", slog.Int64("userID", profile.ID))
	return nil
}

// Register creates the account and then performs a normal login with the
// same credentials. Registration success with login failure is reported as
// failure carrying the login error.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) error {
	const op = "session.Register"
	log := m.logger.With(slog.String("op", op), slog.String("email", email))

	if email == "" || password == "" {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	log.Info("register request")
	if _, err := m.gw.Register(ctx, email, password, fullName); err != nil {
		log.Warn("registration failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, m.classify(err, "Registration failed"))
	}

	log.Info("user registered, logging in")
	return m.Login(ctx, email, password)
}

// Logout notifies the server, then unconditionally clears the local
// credential set and profile. The remote call needs the token that is about
// to be destroyed, so it runs first; its failure only gets logged.
func (m *Manager) Logout(ctx context.Context) error {
	const op = "session.Logout"
	log := m.logger.With(slog.String("op", op))

	notifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.gw.Logout(notifyCtx); err != nil {
		log.Warn("remote logout failed", sl.Err(err))
	}

	if err := m.creds.Clear(ctx); err != nil {
		m.mu.Lock()
		m.profile = nil
		m.mu.Unlock()
		m.setStatus(Unauthenticated)
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	m.profile = nil
	m.mu.Unlock()
	m.setStatus(Unauthenticated)

	log.Info("user logged out")
	return nil
}

// forceLogout clears everything after the gateway has already exhausted its
// refresh attempt.
func (m *Manager) forceLogout(ctx context.Context) {
	const op = "session.forceLogout"
	if err := m.creds.Clear(ctx); err != nil {
		m.logger.Error("failed to clear credentials", slog.String("op", op), sl.Err(err))
	}
	m.mu.Lock()
	m.profile = nil
	m.mu.Unlock()
	m.setStatus(Unauthenticated)
}

// classify maps gateway errors onto the caller-facing taxonomy, preferring
// the server's detail message when one exists.
func (m *Manager) classify(err error, fallback string) error {
	if api.IsConnectivityError(err) {
		return ErrNetwork
	}
	if api.IsAuthError(err) || errors.Is(err, api.ErrNoRefreshToken) {
		return &AuthError{Message: api.Detail(err, fallback)}
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		// Non-auth server failure: surface the detail, don't dress it up
		// as an auth problem.
		return errors.New(api.Detail(err, fallback))
	}
	return err
}
