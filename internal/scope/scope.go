// Package scope talks to the delta-scope anomaly API.
package scope

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

// Tier is the "type" field of a results payload.
type Tier string

const (
	TierInvalid Tier = "Invalid Key"
	TierPremium Tier = "Premium"
)

// HotScore is the score at which an item is flagged as hot.
const HotScore = 80

// TrendStep is the spacing between trend samples.
const TrendStep = 5 * time.Minute

var ErrInvalidKey = errors.New("license key invalid or expired")

type Item struct {
	Name        string    `json:"name"`
	Msg         string    `json:"msg"`
	Score       float64   `json:"score"`
	TimeOnBoard string    `json:"time_on_board"`
	Trend       []float64 `json:"trend,omitempty"`
}

// Hot reports whether the item scores high enough to be highlighted.
func (it Item) Hot() bool { return it.Score >= HotScore }

type Lists struct {
	Bull []Item `json:"bull"`
	Bear []Item `json:"bear"`
	Neut []Item `json:"neut"`
}

type Result struct {
	Type      Tier   `json:"type"`
	User      string `json:"user,omitempty"`
	Timestamp string `json:"timestamp"`
	Data      Lists  `json:"data"`
}

type KeyState string

const (
	KeyInvalid KeyState = "invalid"
	KeyPremium KeyState = "premium"
	KeyGuest   KeyState = "guest"
)

type KeyStatus struct {
	State KeyState `json:"state"`
	Label string   `json:"label"`
}

// KeyStatus classifies the license tier of the payload.
func (r Result) KeyStatus() KeyStatus {
	switch r.Type {
	case TierInvalid:
		return KeyStatus{State: KeyInvalid, Label: "license key invalid or expired"}
	case TierPremium:
		return KeyStatus{State: KeyPremium, Label: "VIP: " + r.User}
	default:
		return KeyStatus{State: KeyGuest, Label: "guest mode (delayed data)"}
	}
}

// Err returns ErrInvalidKey when the server rejected the license key. The
// payload still carries the public (delayed) lists in that case.
func (r Result) Err() error {
	if r.Type == TierInvalid {
		return ErrInvalidKey
	}
	return nil
}

// TrendLabels returns the relative time label for each of n trend samples,
// oldest first. The newest sample is "Now".
func TrendLabels(n int) []string {
	if n <= 0 {
		n = 1
	}
	out := make([]string, n)
	for i := range out {
		mins := (n - 1 - i) * int(TrendStep/time.Minute)
		if mins == 0 {
			out[i] = "Now"
			continue
		}
		out[i] = fmt.Sprintf("-%dm", mins)
	}
	return out
}

// TrendOrZero returns the trend samples, or a single zero sample when empty.
func (it Item) TrendOrZero() []float64 {
	if len(it.Trend) == 0 {
		return []float64{0}
	}
	return it.Trend
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("delta-scope http %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSpace(baseURL), http: httpClient}
}

func (c *Client) endpoint(key, deviceID string, ping bool) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("key", key)
	q.Set("device_id", deviceID)
	if ping {
		q.Set("mode", "ping")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch retrieves the current anomaly lists.
func (c *Client) Fetch(ctx context.Context, key, deviceID string) (Result, error) {
	u, err := c.endpoint(key, deviceID, false)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch results: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode results: %w", err)
	}
	return res, nil
}

// Ping sends the keep-alive heartbeat. The response body is ignored.
func (c *Client) Ping(ctx context.Context, key, deviceID string) error {
	u, err := c.endpoint(key, deviceID, true)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
