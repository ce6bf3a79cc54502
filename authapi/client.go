package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-client/users"
	"golang.org/x/oauth2"
)

// Endpoint paths, relative to the service base URL (e.g. http://localhost:8080/api).
const (
	PathLogin          = "/auth/login"
	PathRefresh        = "/auth/refresh"
	PathMe             = "/auth/me"
	PathLogout         = "/auth/logout"
	PathRegister       = "/auth/register"
	PathChangePassword = "/auth/change-password"
	PathHealth         = "/auth/health"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client calls the remote auth service. It adds no credentials of its own:
// authentication is the job of the *http.Client it is given.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient validates baseURL and returns a client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[authapi.NewClient] invalid base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("[authapi.NewClient] base URL must be absolute http(s): %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithHTTPClient returns a copy of c that sends through httpClient.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{baseURL: c.baseURL, http: httpClient}
}

// Login exchanges credentials for a token pair and the user profile.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var tr TokenResponse
	if _, err := c.do(ctx, http.MethodPost, PathLogin, req, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, &Error{Kind: KindServerFailure, Status: http.StatusOK, Message: "login response missing tokens"}
	}
	return &tr, nil
}

// Refresh exchanges a refresh token for a new pair. Any non-2xx answer is KindRefreshRejected.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var tr TokenResponse
	if _, err := c.do(ctx, http.MethodPost, PathRefresh, RefreshRequest{RefreshToken: refreshToken}, &tr); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			apiErr.Kind = KindRefreshRejected
		}
		return nil, err
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, &Error{Kind: KindRefreshRejected, Status: http.StatusOK, Message: "refresh response missing tokens"}
	}
	return &tr, nil
}

// Me fetches the current user's profile. Requires a bearer credential.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var u users.User
	if _, err := c.do(ctx, http.MethodGet, PathMe, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout notifies the server. accessToken, when set, is attached so the server can revoke it.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, PathLogout, nil, nil, func(r *http.Request) {
		if accessToken != "" {
			(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(r)
		}
	})
	return err
}

// Register creates a user. The request is validated before anything is sent.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var u users.User
	if _, err := c.do(ctx, http.MethodPost, PathRegister, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword updates the current user's password. The request is validated before anything is sent.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPut, PathChangePassword, req, nil)
	return err
}

// Health probes the service and returns its status message.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, PathHealth, nil, nil)
}

// do sends one request and decodes the envelope's data into out, returning the envelope message.
func (c *Client) do(ctx context.Context, method, path string, in, out any, opts ...func(*http.Request)) (string, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", &Error{Kind: KindValidationFailure, Message: "could not encode request", Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return "", apiErr
		}
		return "", &Error{Kind: KindNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Status: resp.StatusCode, Err: err}
	}

	var env Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			Kind:    KindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: env.Message,
			Err:     errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	if out == nil {
		return env.Message, nil
	}
	if decodeErr != nil {
		return "", &Error{Kind: KindServerFailure, Status: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return "", &Error{Kind: KindServerFailure, Status: resp.StatusCode, Message: "response missing data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return "", &Error{Kind: KindServerFailure, Status: resp.StatusCode, Message: "malformed response data", Err: err}
	}
	return env.Message, nil
}
