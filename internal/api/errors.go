package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimedOut           = errors.New("request timed out")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrNoRefreshToken     = errors.New("no refresh token")
)

// Error is an application-level failure response from the remote service,
// carrying the HTTP status and the server's detail message.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: server returned %d", e.Status)
	}
	return fmt.Sprintf("api: server returned %d: %s", e.Status, e.Detail)
}

// IsAuthError reports whether err is a 401 from the remote service.
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsConnectivityError reports whether err means the service could not be
// reached at all (timeout or no response).
func IsConnectivityError(err error) bool {
	return errors.Is(err, ErrTimedOut) || errors.Is(err, ErrNetworkUnavailable)
}

// Detail returns the server-provided message from err, or fallback when err
// carries none.
func Detail(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
