package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"mysalah/internal/domain/models"
	"mysalah/internal/lib/sl"

	"golang.org/x/sync/singleflight"
)

// TokenStore supplies credentials for outbound requests and receives the
// rotated pair after a refresh. Clear destroys the whole credential set.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetPair(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// Client wraps every call to the remote service. It attaches the bearer
// token best-effort, classifies transport failures, and on a 401 runs the
// refresh protocol once before retrying the original request.
type Client struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	tokens  TokenStore
	group   singleflight.Group
}

func New(logger *slog.Logger, baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// do issues one request with the auth protocol applied. retried is threaded
// explicitly so a request is retried at most once after a refresh.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, retried bool) error {
	const op = "api.do"

	err := c.send(ctx, method, path, query, body, out, true)
	if err == nil {
		return nil
	}

	if IsAuthError(err) && !retried {
		if rerr := c.refresh(ctx); rerr != nil {
			return rerr
		}
		return c.do(ctx, method, path, query, body, out, true)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// refresh exchanges the refresh token for a new pair. Concurrent callers are
// coalesced into a single in-flight exchange; all of them observe its
// outcome. A failed exchange destroys the credential set, which callers must
// treat as "session ended".
func (c *Client) refresh(ctx context.Context) error {
	const op = "api.refresh"

	_, err, _ := c.group.Do("refresh", func() (any, error) {
		refreshToken := c.tokens.RefreshToken()
		if refreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		query := url.Values{"refresh_token": []string{refreshToken}}
		var pair models.TokenPair
		if err := c.send(ctx, http.MethodPost, "/auth/refresh", query, nil, &pair, false); err != nil {
			c.logger.Warn("token refresh failed, ending session", sl.Err(err))
			if cerr := c.tokens.Clear(ctx); cerr != nil {
				c.logger.Error("failed to clear credentials", sl.Err(cerr))
			}
			return nil, err
		}

		if err := c.tokens.SetPair(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			return nil, err
		}

		c.logger.Info("access token refreshed")
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// send performs a single round trip with no retry logic.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any, withAuth bool) error {
	const op = "api.send"

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		// Attachment is best-effort from cache; an expired or absent token
		// is handled by the 401 path, never by blocking here.
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// classify maps transport errors onto the client taxonomy: a timeout becomes
// ErrTimedOut, everything else without a response is ErrNetworkUnavailable.
func classify(op string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%s: %w", op, ErrTimedOut)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimedOut)
	}
	return fmt.Errorf("%s: %w", op, ErrNetworkUnavailable)
}

// readDetail extracts the server's detail message from an error body.
func readDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
