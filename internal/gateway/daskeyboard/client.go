// Package daskeyboard talks to the signal API of the local keyboard client application.
package daskeyboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

const (
	// DefaultBaseURL is the signals endpoint exposed by the keyboard client application.
	DefaultBaseURL = "http://localhost:27301/api/1.0/signals"
	// DefaultPID is the product identifier of the 5Q keyboard.
	DefaultPID = "DK5QPID"

	defaultTimeout = 10 * time.Second

	effectBlink    = "BLINK"
	effectSetColor = "SET_COLOR"
)

// Client implements signal.Gateway over HTTP.
type Client struct {
	baseURL string
	pid     string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a gateway client. Empty values fall back to the defaults.
func NewClient(baseURL, pid string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pid = strings.TrimSpace(pid)
	if pid == "" {
		pid = DefaultPID
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		pid:     pid,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
}

// WithLogger returns the client using logger for request diagnostics.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

type shadow struct {
	PID     string `json:"pid"`
	ZoneID  string `json:"zoneId"`
	Color   string `json:"color"`
	Effect  string `json:"effect"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// FetchAll returns every signal currently held by the device.
func (c *Client) FetchAll(ctx context.Context) (signal.Snapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/shadows", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var shadows []shadow
	if err := json.NewDecoder(resp.Body).Decode(&shadows); err != nil {
		return nil, signal.GatewayRejected(http.MethodGet, resp.StatusCode, fmt.Errorf("decode shadows: %w", err))
	}
	snapshot := make(signal.Snapshot, len(shadows))
	for _, item := range shadows {
		if item.ZoneID == "" {
			continue
		}
		snapshot[item.ZoneID] = signal.Signal{
			ZoneID:  item.ZoneID,
			Name:    item.Name,
			Color:   item.Color,
			Message: item.Message,
			Blink:   strings.EqualFold(item.Effect, effectBlink),
		}
	}
	return snapshot, nil
}

// Set writes one signal to its zone.
func (c *Client) Set(ctx context.Context, s signal.Signal) error {
	effect := effectSetColor
	if s.Blink {
		effect = effectBlink
	}
	body, err := json.Marshal(shadow{
		PID:     c.pid,
		ZoneID:  s.ZoneID,
		Color:   s.Color,
		Effect:  effect,
		Name:    s.Name,
		Message: s.Message,
	})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Delete removes the signal of one zone.
func (c *Client) Delete(ctx context.Context, zoneID string) error {
	endpoint := c.baseURL + "/pid/" + url.PathEscape(c.pid) + "/zoneId/" + zoneID
	resp, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// do sends the request and maps transport failures and non-2xx statuses to gateway errors.
// The caller owns the returned body.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, signal.GatewayRejected(method, 0, err)
		}
		return nil, signal.GatewayUnreachable(method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		c.logger.Debug("signal request rejected",
			"method", method,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(snippet)),
		)
		return nil, signal.GatewayRejected(method, resp.StatusCode, nil)
	}
	return resp, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
