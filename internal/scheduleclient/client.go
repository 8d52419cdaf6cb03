// Package scheduleclient talks to the schedule API over HTTP. A *Client satisfies
// board.Backend, so the same board widget runs against a remote server.
package scheduleclient

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
	"sync"
	"time"

	"github.com/rosterforge/rosterforge/internal/models"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// Client is safe for concurrent use; the bulk dispatcher calls it from many goroutines.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", baseURL)
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenUser is the identity embedded in a login response.
type TokenUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	TeamID   string `json:"team_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

type Login struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      TokenUser `json:"user"`
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (Login, error) {
	var out Login
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", nil, body, &out); err != nil {
		return Login{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) ListActivities(ctx context.Context, teamID string) ([]models.Activity, error) {
	var out struct {
		Activities []models.Activity `json:"activities"`
	}
	query := url.Values{"team_id": {teamID}}
	if err := c.do(ctx, http.MethodGet, "/api/schedule", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *Client) CreateActivity(ctx context.Context, input models.ActivityInput) (models.Activity, error) {
	var out struct {
		Activity models.Activity `json:"activity"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/schedule", nil, input, &out); err != nil {
		return models.Activity{}, err
	}
	return out.Activity, nil
}

// UpdateActivity replaces an activity's fields. The team cannot change, so team_id is not sent.
func (c *Client) UpdateActivity(ctx context.Context, id string, input models.ActivityInput) (models.Activity, error) {
	input.TeamID = ""
	var out struct {
		Activity models.Activity `json:"activity"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/schedule/"+url.PathEscape(id), nil, input, &out); err != nil {
		return models.Activity{}, err
	}
	return out.Activity, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/schedule/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListAvailability(ctx context.Context, teamID, weekStart string) ([]models.PlayerWeeklyAvailability, error) {
	var out struct {
		Availabilities []models.PlayerWeeklyAvailability `json:"availabilities"`
	}
	query := url.Values{"team_id": {teamID}}
	if weekStart != "" {
		query.Set("week_start", weekStart)
	}
	if err := c.do(ctx, http.MethodGet, "/api/player-availability", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Availabilities, nil
}

// SaveAvailability submits a week of availability. An empty playerID means the caller's own player.
func (c *Client) SaveAvailability(ctx context.Context, playerID, weekStart string, hours models.WeeklyHours) (models.PlayerWeeklyAvailability, error) {
	body := struct {
		PlayerID     string             `json:"player_id,omitempty"`
		WeekStart    string             `json:"week_start"`
		Availability models.WeeklyHours `json:"availability"`
	}{PlayerID: playerID, WeekStart: weekStart, Availability: hours}
	var out struct {
		Availability models.PlayerWeeklyAvailability `json:"availability"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/player-availability", nil, body, &out); err != nil {
		return models.PlayerWeeklyAvailability{}, err
	}
	return out.Availability, nil
}

// LiveURL is the websocket address of the team's change feed.
func (c *Client) LiveURL(teamID string) string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/schedule/live"
	u.RawQuery = url.Values{"team_id": {teamID}}.Encode()
	return u.String()
}

// AuthHeader carries the bearer token for requests made outside the client, such as the
// websocket dial.
func (c *Client) AuthHeader() http.Header {
	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return header
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
