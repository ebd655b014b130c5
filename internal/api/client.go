// Package api provides a client for the Brink Home portal API.
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
	"strings"
	"sync/atomic"

	"brink_bridge/internal/auth"
)

// DefaultBaseURL is the portal API root.
const DefaultBaseURL = "https://www.brink-home.com/portal/api/portal/"

// APIClient handles HTTP requests to the Brink Home portal.
// A 401 on any call triggers one re-login and one retry of that call.
type APIClient struct {
	baseURL    string
	auth       *auth.AuthClient
	creds      auth.Credentials
	httpClient *http.Client
	logger     *slog.Logger

	authenticated atomic.Bool
}

// NewAPIClient creates a new portal client sharing authClient's session.
func NewAPIClient(authClient *auth.AuthClient, creds auth.Credentials, baseURL string, logger *slog.Logger) *APIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &APIClient{
		baseURL:    baseURL,
		auth:       authClient,
		creds:      creds,
		httpClient: authClient.HTTPClient(),
		logger:     logger,
	}
}

// Authenticated reports whether the last call left a valid session behind.
func (c *APIClient) Authenticated() bool {
	return c.authenticated.Load()
}

// Login authenticates with the stored credentials.
func (c *APIClient) Login(ctx context.Context) error {
	const op = "login"

	err := c.auth.Authenticate(ctx, c.creds)
	if err == nil {
		c.authenticated.Store(true)
		return nil
	}
	c.authenticated.Store(false)

	var statusErr *auth.StatusError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &AuthError{Op: op, Status: http.StatusUnauthorized, Err: err}
	case errors.As(err, &statusErr):
		return &StatusError{Op: op, Status: statusErr.Status, Body: statusErr.Body}
	default:
		return &NetworkError{Op: op, Err: err}
	}
}

// doRequest performs a request, re-authenticating once on 401.
func (c *APIClient) doRequest(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = b
	}

	data, status, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if status == http.StatusUnauthorized {
		c.authenticated.Store(false)
		c.logger.Warn("Client unauthorized, logging in again", "method", method, "path", path)

		if err := c.Login(ctx); err != nil {
			return nil, err
		}

		data, status, err = c.send(ctx, method, path, body)
		if err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
		if status == http.StatusUnauthorized {
			c.authenticated.Store(false)
			c.logger.Error("Unauthorized after re-login", "method", method, "path", path)
			return nil, &AuthError{Op: op, Status: status}
		}
	}

	if status/100 != 2 {
		c.logger.Warn("Non-2xx status", "method", method, "path", path, "status", status)
		return nil, &StatusError{Op: op, Status: status, Body: strings.TrimSpace(string(data))}
	}

	c.authenticated.Store(true)
	return data, nil
}

// send issues a single HTTP request and returns the body and status code.
func (c *APIClient) send(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	c.logger.Debug("API request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed", "method", method, "path", path, "error", err)
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(data))

	return data, resp.StatusCode, nil
}
