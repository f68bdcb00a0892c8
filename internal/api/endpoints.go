package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"mysalah/internal/domain/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. Registration is unauthenticated and outside
// the refresh protocol: a 401 here is a final answer, not an expired token.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	const op = "api.Register"
	var profile models.Profile
	body := registerRequest{Email: email, Password: password, FullName: fullName}
	if err := c.send(ctx, http.MethodPost, "/auth/register", nil, body, &profile, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}

// Login exchanges credentials for a token pair. Like Register it bypasses
// bearer attachment and the 401 retry. Persisting the pair is the caller's
// job; the client only rewrites credentials during refresh.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "api.Login"
	var pair models.TokenPair
	body := loginRequest{Email: email, Password: password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", nil, body, &pair, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &pair, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &profile, false); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout asks the server to invalidate the session. Best-effort; callers
// clear local state regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, false)
}

// PrayerTimes fetches timings for coordinates. The response is returned
// verbatim; the cache layer stamps fetch and expiry metadata.
func (c *Client) PrayerTimes(ctx context.Context, latitude, longitude float64, method, school int) (*models.Snapshot, error) {
	query := url.Values{
		"latitude":  []string{strconv.FormatFloat(latitude, 'f', -1, 64)},
		"longitude": []string{strconv.FormatFloat(longitude, 'f', -1, 64)},
		"method":    []string{strconv.Itoa(method)},
		"school":    []string{strconv.Itoa(school)},
	}
	var snapshot models.Snapshot
	if err := c.do(ctx, http.MethodGet, "/prayers/times", query, nil, &snapshot, false); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SaveLocation mirrors the resolved location to the server.
func (c *Client) SaveLocation(ctx context.Context, location *models.Location) error {
	return c.do(ctx, http.MethodPost, "/prayers/location", nil, location, nil, false)
}

// SavedLocation fetches the server-side location mirror.
func (c *Client) SavedLocation(ctx context.Context) (*models.Location, error) {
	var location models.Location
	if err := c.do(ctx, http.MethodGet, "/prayers/location", nil, nil, &location, false); err != nil {
		return nil, err
	}
	return &location, nil
}
