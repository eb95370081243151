// Package api is the HTTP client for the chat backend.
package api

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
	"time"

	"github.com/tOgg1/chatline/internal/chat"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrUnauthorized is matched by StatusErrors carrying 401 or 403.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	HTTP    *http.Client
}

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api: base url required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: unsupported scheme %q", base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	httpClient := cfg.HTTP
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, token: strings.TrimSpace(cfg.Token), http: httpClient}, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context) (chat.User, error) {
	var user chat.User
	if err := c.getJSON(ctx, "/api/auth/check", nil, &user); err != nil {
		return chat.User{}, err
	}
	return user, nil
}

// Users returns the directory listing.
func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	var users []chat.User
	if err := c.getJSON(ctx, "/api/messages/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Messages returns the history involving localID. An empty localID fetches
// the unscoped history.
func (c *Client) Messages(ctx context.Context, localID chat.UserID) ([]chat.Message, error) {
	var query url.Values
	if localID != "" {
		query = url.Values{"userId": {localID.String()}}
	}
	var msgs []chat.Message
	if err := c.getJSON(ctx, "/allMessages", query, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send posts a text message to the given user.
func (c *Client) Send(ctx context.Context, to chat.UserID, text string) (chat.Message, error) {
	if err := chat.ValidateUserID(to); err != nil {
		return chat.Message{}, err
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return chat.Message{}, err
	}
	path := "/api/messages/send/" + url.PathEscape(to.String())
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(body))
	if err != nil {
		return chat.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var msg chat.Message
	if err := c.do(req, &msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// PresenceURL returns the websocket URL of the presence feed for localID.
func (c *Client) PresenceURL(localID chat.UserID) string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/ws"
	u.RawQuery = url.Values{"userId": {localID.String()}}.Encode()
	return u.String()
}

// AuthHeader returns the headers needed to authenticate a websocket dial.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
