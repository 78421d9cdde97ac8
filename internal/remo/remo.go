// Package remo is a small client for the Nature Remo cloud API, covering
// the appliance listing and light button endpoints.
package remo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Nature Remo cloud endpoint.
const DefaultBaseURL = "https://api.nature.global"

// ButtonOn is the light button sent by default.
const ButtonOn = "on"

// ErrUnauthorized is returned when the API rejects the access token.
var ErrUnauthorized = errors.New("remo: unauthorized")

// Config holds client settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the Nature Remo API with a bearer token.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// LightState is the state returned after pressing a light button.
type LightState struct {
	Brightness string `json:"brightness"`
	Power      string `json:"power"`
	LastButton string `json:"last_button"`
}

// Appliance is the subset of an appliance record the CLI lists.
type Appliance struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

// New builds a Client. The token is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("remo: token is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remo base URL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: parsed, token: cfg.Token, http: hc}, nil
}

// SendLight presses a light button on the appliance, "on" when button is empty.
func (c *Client) SendLight(ctx context.Context, applianceID, button string) (*LightState, error) {
	if applianceID == "" {
		return nil, errors.New("remo: appliance id is empty")
	}
	if button == "" {
		button = ButtonOn
	}

	form := url.Values{"button": {button}}
	endpoint := c.baseURL.JoinPath("1", "appliances", applianceID, "light").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var state LightState
	if err := c.do(req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Appliances lists the appliances registered to the account.
func (c *Client) Appliances(ctx context.Context) ([]Appliance, error) {
	endpoint := c.baseURL.JoinPath("1", "appliances").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	var appliances []Appliance
	if err := c.do(req, &appliances); err != nil {
		return nil, err
	}
	return appliances, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}
	return nil
}

// readErrorBody returns at most 512 bytes of the body for error messages.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return "(could not read error body)"
	}
	return strings.TrimSpace(string(body))
}
