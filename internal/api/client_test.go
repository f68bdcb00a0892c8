package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mysalah/internal/api"
	"mysalah/internal/creds"
	"mysalah/internal/storage"
	"mysalah/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) (*api.Client, *creds.Store, *memory.Storage) {
	t.Helper()
	logger := discardLogger()
	store := memory.New(logger)
	credentials := creds.New(logger, store)
	return api.New(logger, baseURL, timeout, credentials), credentials, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBearerAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "email": "a@b.c"})
	}))
	defer srv.Close()

	client, credentials, _ := newTestClient(t, srv.URL, time.Second)
	require.NoError(t, credentials.SetPair(context.Background(), "tok-1", "ref-1"))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	var hadHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadHeader = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "a", "refresh_token": "r"})
	}))
	defer srv.Close()

	client, _, _ := newTestClient(t, srv.URL, time.Second)

	_, err := client.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.False(t, hadHeader, "login must not carry a bearer token, got %q", gotAuth)
}

func TestRefreshAndRetryOnce(t *testing.T) {
	ctx := context.Background()
	var meCalls, refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok-new" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "email": "a@b.c"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		require.Equal(t, "ref-old", r.URL.Query().Get("refresh_token"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-new", "refresh_token": "ref-new"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, credentials, _ := newTestClient(t, srv.URL, time.Second)
	require.NoError(t, credentials.SetPair(ctx, "tok-old", "ref-old"))

	profile, err := client.Me(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, profile.ID)

	assert.EqualValues(t, 2, atomic.LoadInt32(&meCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "tok-new", credentials.AccessToken())
	assert.Equal(t, "ref-new", credentials.RefreshToken())
}

func TestSecond401NotRetried(t *testing.T) {
	ctx := context.Background()
	var meCalls, refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-new", "refresh_token": "ref-new"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, credentials, _ := newTestClient(t, srv.URL, time.Second)
	require.NoError(t, credentials.SetPair(ctx, "tok-old", "ref-old"))

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	assert.EqualValues(t, 2, atomic.LoadInt32(&meCalls), "one retry, no more")
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token revoked"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, credentials, store := newTestClient(t, srv.URL, time.Second)
	require.NoError(t, credentials.SetPair(ctx, "tok-old", "ref-old"))
	require.NoError(t, store.Set(ctx, storage.KeyUserProfile, map[string]string{"email": "a@b.c"}))

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	assert.Empty(t, credentials.AccessToken())
	assert.Empty(t, credentials.RefreshToken())

	var profile map[string]string
	assert.True(t, errors.Is(store.Get(ctx, storage.KeyUserProfile, &profile), storage.ErrNotFound))
}

func TestNoRefreshToken(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	}))
	defer srv.Close()

	client, credentials, _ := newTestClient(t, srv.URL, time.Second)
	require.NoError(t, credentials.SetPair(ctx, "tok-stale", ""))

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNoRefreshToken))
}

func TestTimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{"id": 1})
	}))
	defer srv.Close()

	client, _, _ := newTestClient(t, srv.URL, 50*time.Millisecond)

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrTimedOut))
}

func TestNetworkUnavailableClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, _, _ := newTestClient(t, srv.URL, time.Second)

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNetworkUnavailable))
}

func TestServerErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database down"})
	}))
	defer srv.Close()

	client, _, _ := newTestClient(t, srv.URL, time.Second)

	_, err := client.Me(context.Background())
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database down", apiErr.Detail)
}

// Ten requests observing a 401 at the same moment must share one refresh
// exchange instead of racing ten rotations against each other.
func TestConcurrent401sCoalesceRefresh(t *testing.T) {
	ctx := context.Background()
	const callers = 10

	var refreshCalls int32
	var barrier sync.WaitGroup
	barrier.Add(callers)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-new" {
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "email": "a@b.c"})
			return
		}
		// Hold every stale request until all callers are in flight, so the
		// 401s land together.
		barrier.Done()
		barrier.Wait()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-new", "refresh_token": "ref-new"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, credentials, _ := newTestClient(t, srv.URL, 5*time.Second)
	require.NoError(t, credentials.SetPair(ctx, "tok-old", "ref-old"))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Me(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "tok-new", credentials.AccessToken())
	assert.Equal(t, "ref-new", credentials.RefreshToken())
}
