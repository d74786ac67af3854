// Package client is a small HTTP client for services that call the
// engagement engine. It remembers the guest/session identifier pair the
// engine issues and attaches it to every subsequent request, mirroring what
// a browser front end does with its storage tiers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Header names, matching the engine's middleware.
const (
	HeaderGuestID   = "X-Eco-Guest-Id"
	HeaderSessionID = "X-Eco-Session-Id"
)

// Client calls the engagement engine API.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.RWMutex
	guestID   string
	sessionID string
	token     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets a bearer token; authenticated calls take tier and identity
// from the token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the engine at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IDs returns the currently remembered identifier pair.
func (c *Client) IDs() (guestID, sessionID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guestID, c.sessionID
}

// SetToken replaces the bearer token after a login or registration.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// RememberIDsFromResponse adopts the identifier pair echoed on an engine
// response. Called automatically by do; exported so callers proxying engine
// responses can keep the pair in sync.
func (c *Client) RememberIDsFromResponse(resp *http.Response) {
	guestID := resp.Header.Get(HeaderGuestID)
	sessionID := resp.Header.Get(HeaderSessionID)
	if guestID == "" && sessionID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if guestID != "" {
		c.guestID = guestID
	}
	if sessionID != "" {
		c.sessionID = sessionID
	}
}

// do sends a request with the remembered identity attached and consumes the
// echoed pair from the response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	if c.guestID != "" {
		req.Header.Set(HeaderGuestID, c.guestID)
	}
	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.RememberIDsFromResponse(resp)

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("engine returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("engine returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Identity is the engine's resolved identifier pair.
type Identity struct {
	GuestID        string `json:"guestId"`
	SessionID      string `json:"sessionId"`
	GuestCreated   bool   `json:"guestCreated"`
	SessionCreated bool   `json:"sessionCreated"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// Ensure resolves (and remembers) the identifier pair.
func (c *Client) Ensure(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodPost, "/api/v1/identity/ensure", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Reset discards the remembered identity on both ends.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/identity/reset", nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.guestID = ""
	c.sessionID = ""
	c.mu.Unlock()
	return nil
}

// LimitStatus mirrors the engine's gate decision.
type LimitStatus struct {
	Count        int  `json:"count"`
	Limit        int  `json:"limit"`
	Unlimited    bool `json:"unlimited"`
	ReachedLimit bool `json:"reachedLimit"`
	SoftPrompt   bool `json:"softPrompt"`
}

// Limit reads the current gate decision for a feature.
func (c *Client) Limit(ctx context.Context, feature string) (*LimitStatus, error) {
	var status LimitStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/limits/"+feature, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// IncrementLimit consumes one unit of usage for a feature.
func (c *Client) IncrementLimit(ctx context.Context, feature string) (*LimitStatus, error) {
	var status LimitStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/limits/"+feature+"/increment", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StreakState mirrors the engine's streak record.
type StreakState struct {
	CurrentStreak      int    `json:"currentStreak"`
	LastCompletionDate string `json:"lastCompletionDate"`
	LongestStreak      int    `json:"longestStreak"`
}

// Streak reads the current streak.
func (c *Client) Streak(ctx context.Context) (*StreakState, error) {
	var state StreakState
	if err := c.do(ctx, http.MethodGet, "/api/v1/streak", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CompleteStreak records today's qualifying activity.
func (c *Client) CompleteStreak(ctx context.Context) (*StreakState, error) {
	var state StreakState
	if err := c.do(ctx, http.MethodPost, "/api/v1/streak/complete", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Event is one reported interaction.
type Event struct {
	Type string         `json:"type"`
	Page string         `json:"page,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// IngestResult summarizes a processed event batch.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// ReportEvents sends a batch of interaction events.
func (c *Client) ReportEvents(ctx context.Context, events []Event) (*IngestResult, error) {
	var result IngestResult
	body := map[string]any{"events": events}
	if err := c.do(ctx, http.MethodPost, "/api/v1/state", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TriggerStatus mirrors the engine's trigger view.
type TriggerStatus struct {
	Phase            string     `json:"phase"`
	ForegroundTime   int64      `json:"foregroundTimeSeconds"`
	InteractionCount int        `json:"interactionCount"`
	CooldownUntil    *time.Time `json:"cooldownUntil,omitempty"`
	Authenticated    bool       `json:"authenticated"`
}

// Trigger reads the conversion-trigger status for the current session.
func (c *Client) Trigger(ctx context.Context) (*TriggerStatus, error) {
	var status TriggerStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/trigger", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DismissTrigger records that the prompt was declined.
func (c *Client) DismissTrigger(ctx context.Context) (*TriggerStatus, error) {
	var status TriggerStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/trigger/dismiss", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
