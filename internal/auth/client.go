// Package auth handles the cookie based session login against the Brink Home portal.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const logonPath = "UserLogon"

// ErrInvalidCredentials is returned when the portal rejects the credentials.
var ErrInvalidCredentials = errors.New("credentials rejected")

// Credentials holds authentication credentials.
type Credentials struct {
	Username string
	Password string
}

// StatusError is returned for non-2xx logon responses other than 401.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("logon returned status %d: %s", e.Status, e.Body)
}

// AuthClient performs the portal logon. The session cookie it obtains lives
// in the cookie jar of HTTPClient, which API calls must share.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthClient creates a new authentication client with its own cookie jar.
// timeout bounds every individual request made through the client.
func NewAuthClient(baseURL string, timeout time.Duration, logger *slog.Logger) *AuthClient {
	jar, _ := cookiejar.New(nil)

	return &AuthClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &headerTransport{
				base: &http.Transport{
					Proxy:               http.ProxyFromEnvironment,
					MaxIdleConns:        10,
					MaxIdleConnsPerHost: 5,
					IdleConnTimeout:     90 * time.Second,
				},
			},
		},
		logger: logger,
	}
}

// HTTPClient returns the session-carrying HTTP client.
func (a *AuthClient) HTTPClient() *http.Client {
	return a.httpClient
}

// Authenticate logs in with the given credentials.
func (a *AuthClient) Authenticate(ctx context.Context, creds Credentials) error {
	a.logger.Debug("Starting authentication", "username", creds.Username)

	body, err := json.Marshal(struct {
		UserName string `json:"UserName"`
		Password string `json:"Password"`
	}{creds.Username, creds.Password})
	if err != nil {
		return fmt.Errorf("marshal logon: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+logonPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	res, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("Logon request failed", "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		a.logger.Warn("Logon rejected", "username", creds.Username)
		return ErrInvalidCredentials
	case res.StatusCode/100 != 2:
		return &StatusError{Status: res.StatusCode, Body: string(b)}
	}

	a.logger.Info("Authentication successful", "username", creds.Username)
	return nil
}

// headerTransport stamps the fixed mobile-client headers on every request.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	r.Header.Set("User-Agent", "okhttp/3.11.0")
	r.Header.Set("Accept", "application/json")
	if r.Body != nil && r.Body != http.NoBody {
		r.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	return t.base.RoundTrip(r)
}
