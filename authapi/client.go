package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/jrsteele09/narrate-web/users"
)

// Backend auth routes.
const (
	RouteLogin    = "/auth/login"
	RouteRegister = "/auth/register"
	RouteRefresh  = "/auth/refresh"
	RouteMe       = "/auth/me"
)

const (
	contentTypeJSON = "application/json"
	maxErrorBody    = 64 << 10
)

// StatusError is returned when the backend answers with a non-2xx status.
// It unwraps to the sentinel that classifies the failure so callers can use
// errors.Is(err, apperrors.ErrInvalidCredentials) and friends.
type StatusError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.kind, e.Message, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// Client talks to the backend's authentication endpoints. Every call is
// bounded by the client's timeout so a hung request cannot stall a refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges email and password for a token pair and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*oauth2.TokenResponse, error) {
	return c.issue(ctx, RouteLogin, oauth2.Credentials{Email: email, Password: password})
}

// Register provisions an account and signs it in.
func (c *Client) Register(ctx context.Context, email, password string) (*oauth2.TokenResponse, error) {
	return c.issue(ctx, RouteRegister, oauth2.Credentials{Email: email, Password: password})
}

// Refresh trades a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	return c.issue(ctx, RouteRefresh, oauth2.RefreshRequest{RefreshToken: refreshToken})
}

// Me fetches the profile of the account owning accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+RouteMe, nil)
	if err != nil {
		return nil, fmt.Errorf("[authapi Me] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", contentTypeJSON)

	var profile users.Profile
	if err := c.do(req, &profile, apperrors.ErrNotAuthenticated); err != nil {
		return nil, fmt.Errorf("[authapi Me] %w", err)
	}
	return &profile, nil
}

func (c *Client) issue(ctx context.Context, route string, body any) (*oauth2.TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[authapi %s] encode request: %w", route, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("[authapi %s] build request: %w", route, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	var tr oauth2.TokenResponse
	if err := c.do(req, &tr, apperrors.ErrInvalidCredentials); err != nil {
		return nil, fmt.Errorf("[authapi %s] %w", route, err)
	}
	if !tr.Valid() {
		return nil, fmt.Errorf("[authapi %s] %w: response carries no access token", route, apperrors.ErrNetwork)
	}
	return &tr, nil
}

// do sends req and decodes a 2xx JSON body into out. Client errors are
// classified as rejectKind, everything else as a network error.
func (c *Client) do(req *http.Request, out any, rejectKind error) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, rejectKind)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrNetwork, err)
	}
	return nil
}

func statusError(resp *http.Response, rejectKind error) error {
	kind := apperrors.ErrNetwork
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
		kind = rejectKind
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er oauth2.ErrorResponse
	msg := ""
	if json.Unmarshal(body, &er) == nil {
		msg = er.Message()
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg, kind: kind}
}
