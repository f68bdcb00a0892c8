package suite

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mysalah/internal/domain/models"

	"github.com/brianvoe/gofakeit/v6"
)

type account struct {
	password string
	profile  models.Profile
}

// FakeRemote is an in-memory stand-in for the backend: registration, login,
// token rotation and the prayers endpoints, speaking the same JSON shapes
// including {"detail": ...} error bodies.
type FakeRemote struct {
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int64
	accounts map[string]*account
	access   map[string]string // access token -> email
	refresh  map[string]string // refresh token -> email
	location *models.Location

	refreshCalls int
	logoutCalls  int
	timesCalls   int
}

func NewFakeRemote(t *testing.T) *FakeRemote {
	t.Helper()

	f := &FakeRemote{
		accounts: make(map[string]*account),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", f.handleRegister)
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/refresh", f.handleRefresh)
	mux.HandleFunc("GET /auth/me", f.handleMe)
	mux.HandleFunc("POST /auth/logout", f.handleLogout)
	mux.HandleFunc("GET /prayers/times", f.handleTimes)
	mux.HandleFunc("POST /prayers/location", f.handleSaveLocation)
	mux.HandleFunc("GET /prayers/location", f.handleSavedLocation)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *FakeRemote) URL() string { return f.srv.URL }

func (f *FakeRemote) RefreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// LogoutCount counts logout requests that arrived with a valid bearer
// token; unauthenticated calls are rejected and not counted.
func (f *FakeRemote) LogoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

func (f *FakeRemote) TimesCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timesCalls
}

// ExpireAccess revokes every issued access token while leaving refresh
// tokens valid, forcing the client through its refresh path.
func (f *FakeRemote) ExpireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
}

// RevokeRefresh revokes every refresh token too, so the next refresh
// attempt fails terminally.
func (f *FakeRemote) RevokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
	f.refresh = make(map[string]string)
}

func (f *FakeRemote) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "malformed body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[req.Email]; exists {
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	f.nextID++
	acc := &account{
		password: req.Password,
		profile: models.Profile{
			ID:        f.nextID,
			Email:     req.Email,
			FullName:  req.FullName,
			CreatedAt: time.Now().UTC(),
		},
	}
	f.accounts[req.Email] = acc
	writeJSON(w, http.StatusCreated, acc.profile)
}

func (f *FakeRemote) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "malformed body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[req.Email]
	if !ok || acc.password != req.Password {
		detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, f.issue(req.Email))
}

func (f *FakeRemote) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("refresh_token")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++

	email, ok := f.refresh[token]
	if !ok {
		detail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(f.refresh, token)
	writeJSON(w, http.StatusOK, f.issue(email))
}

func (f *FakeRemote) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email, ok := f.authorized(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, f.accounts[email].profile)
}

func (f *FakeRemote) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email, ok := f.authorized(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	f.logoutCalls++
	for token, owner := range f.access {
		if owner == email {
			delete(f.access, token)
		}
	}
	for token, owner := range f.refresh {
		if owner == email {
			delete(f.refresh, token)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (f *FakeRemote) handleTimes(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timesCalls++

	if _, ok := f.authorized(r); !ok {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timings": map[string]string{
			"Fajr":    "05:12",
			"Dhuhr":   "13:04",
			"Asr":     "16:45",
			"Maghrib": "20:02",
			"Isha":    "21:30",
		},
		"method": 2,
		"school": 0,
	})
}

func (f *FakeRemote) handleSaveLocation(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.authorized(r); !ok {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	var loc models.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		detail(w, http.StatusBadRequest, "malformed body")
		return
	}
	f.location = &loc
	writeJSON(w, http.StatusOK, loc)
}

func (f *FakeRemote) handleSavedLocation(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.authorized(r); !ok {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if f.location == nil {
		detail(w, http.StatusNotFound, "No saved location")
		return
	}
	writeJSON(w, http.StatusOK, f.location)
}

// issue mints a fresh token pair for the email. Caller holds the lock.
func (f *FakeRemote) issue(email string) models.TokenPair {
	pair := models.TokenPair{
		AccessToken:  gofakeit.UUID(),
		RefreshToken: gofakeit.UUID(),
	}
	f.access[pair.AccessToken] = email
	f.refresh[pair.RefreshToken] = email
	return pair
}

// authorized resolves the bearer token. Caller holds the lock.
func (f *FakeRemote) authorized(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return "", false
	}
	email, ok := f.access[token]
	return email, ok
}

func detail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
