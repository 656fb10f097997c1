// Package pushover implements the Pushover notification API client used for
// perfect-day alerts.
package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the Pushover messages API.
	DefaultEndpoint = "https://api.pushover.net/1/messages.json"

	// MaxTitleLen is the maximum length for a Pushover notification title.
	MaxTitleLen = 250

	// MaxMessageLen is the maximum length for a Pushover notification message.
	MaxMessageLen = 1024
)

// Priority levels for Pushover notifications.
const (
	PriorityLowest = -2
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// ErrNotConfigured is returned by Send when credentials are missing.
var ErrNotConfigured = errors.New("pushover not configured: set pushover.user_key and pushover.app_token")

// Config holds the Pushover credentials.
type Config struct {
	UserKey  string `mapstructure:"user_key" yaml:"user_key" json:"user_key,omitempty"`
	AppToken string `mapstructure:"app_token" yaml:"app_token" json:"app_token,omitempty"`
}

// Configured returns true if Pushover credentials are set.
func (c Config) Configured() bool {
	return c.UserKey != "" && c.AppToken != ""
}

// Message represents a Pushover notification to send.
type Message struct {
	Title    string
	Body     string
	Priority int
}

// Response is the JSON response from the Pushover API.
type Response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors,omitempty"`
}

// Client sends messages with one set of credentials.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
}

// New returns a client posting to DefaultEndpoint.
func New(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint returns a copy of the client posting to endpoint.
func (c *Client) WithEndpoint(endpoint string) *Client {
	cp := *c
	cp.endpoint = endpoint
	return &cp
}

// Send posts msg to the Pushover API.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}

	form := url.Values{
		"token":    {c.cfg.AppToken},
		"user":     {c.cfg.UserKey},
		"title":    {truncate(msg.Title, MaxTitleLen)},
		"message":  {truncate(msg.Body, MaxMessageLen)},
		"priority": {fmt.Sprintf("%d", msg.Priority)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}
	defer resp.Body.Close()

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding pushover response: %w", err)
	}

	if result.Status != 1 {
		return fmt.Errorf("pushover API error: %s", strings.Join(result.Errors, "; "))
	}

	return nil
}

// Alert implements the tracker's perfect-day alerter.
func (c *Client) Alert(ctx context.Context, title, body string) error {
	return c.Send(ctx, Message{Title: title, Body: body, Priority: PriorityNormal})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
