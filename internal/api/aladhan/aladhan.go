// Package aladhan talks to the public AlAdhan prayer-times service. It is
// unauthenticated and used as an alternate timings source keyed by city and
// country instead of coordinates.
package aladhan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
}

func New(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type timingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// TimingsByCity fetches timings for a city/country pair. The service reports
// failures through an application-level code field independent of the HTTP
// status; both are checked.
func (c *Client) TimingsByCity(ctx context.Context, city, country string, method int) (map[string]string, error) {
	const op = "aladhan.TimingsByCity"

	query := url.Values{
		"city":    []string{city},
		"country": []string{country},
		"method":  []string{strconv.Itoa(method)},
	}
	endpoint := c.baseURL + "/timingsByCity?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: http status %d", op, resp.StatusCode)
	}

	var payload timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if payload.Code != http.StatusOK {
		return nil, fmt.Errorf("%s: service returned code %d (%s)", op, payload.Code, payload.Status)
	}

	return payload.Data.Timings, nil
}
