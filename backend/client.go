// Package backend is the REST client for the channel routing service.
package backend

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

	"channel-console/channel"
	"channel-console/config"
	"channel-console/metrics"
)

const maxResponseBody = 4 << 20

// ErrNotFound matches errors for requests the backend answered with 404.
var ErrNotFound = errors.New("not found")

// Error describes a failed backend call. StatusCode is zero when the request
// never got a response.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the backend. All paths are resolved against the configured
// base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client with the configured base URL and timeout.
func NewClient(cfg config.BackendConfig, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q: scheme and host are required", cfg.BaseURL)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: logger,
	}, nil
}

func channelPath(id string) string {
	return "/channels/" + url.PathEscape(id)
}

// ListChannels performs GET /channels/.
func (c *Client) ListChannels(ctx context.Context) ([]channel.Channel, error) {
	var out []channel.Channel
	if err := c.do(ctx, "list channels", http.MethodGet, "/channels/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChannel performs GET /channels/{id}.
func (c *Client) GetChannel(ctx context.Context, id string) (channel.Channel, error) {
	var out channel.Channel
	if err := c.do(ctx, "get channel", http.MethodGet, channelPath(id), nil, &out); err != nil {
		return channel.Channel{}, err
	}
	return out, nil
}

// CreateChannel performs POST /channels/.
func (c *Client) CreateChannel(ctx context.Context, ch channel.Channel) (channel.Channel, error) {
	var out channel.Channel
	if err := c.do(ctx, "create channel", http.MethodPost, "/channels/", ch, &out); err != nil {
		return channel.Channel{}, err
	}
	return out, nil
}

// UpdateChannel performs PUT /channels/{id}.
func (c *Client) UpdateChannel(ctx context.Context, id string, ch channel.Channel) (channel.Channel, error) {
	var out channel.Channel
	if err := c.do(ctx, "update channel", http.MethodPut, channelPath(id), ch, &out); err != nil {
		return channel.Channel{}, err
	}
	return out, nil
}

// DeleteChannel performs DELETE /channels/{id}. Success is status-only.
func (c *Client) DeleteChannel(ctx context.Context, id string) error {
	return c.do(ctx, "delete channel", http.MethodDelete, channelPath(id), nil, nil)
}

// ProcessMessage performs POST /channels/{id}/process.
func (c *Client) ProcessMessage(ctx context.Context, id string, req channel.ProcessRequest) (channel.ProcessResult, error) {
	var out channel.ProcessResult
	if err := c.do(ctx, "process message", http.MethodPost, channelPath(id)+"/process", req, &out); err != nil {
		return channel.ProcessResult{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.BackendRequests.WithLabelValues(op, outcome).Inc()
		metrics.BackendLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			outcome = "encode_error"
			return &Error{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		outcome = "request_error"
		return &Error{Op: op, Err: fmt.Errorf("could not create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		c.logger.Error("backend request failed", "operation", op, "method", method, "path", path, "error", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		outcome = "transport_error"
		c.logger.Error("failed to read backend response", "operation", op, "path", path, "error", err)
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "http_" + fmt.Sprint(resp.StatusCode/100) + "xx"
		detail := errorDetail(data)
		c.logger.Warn("backend rejected request", "operation", op, "method", method, "path", path, "status", resp.StatusCode, "detail", detail)
		return &Error{Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			outcome = "decode_error"
			c.logger.Error("failed to decode backend response", "operation", op, "path", path, "error", err)
			return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	c.logger.Debug("backend request completed", "operation", op, "method", method, "path", path, "status", resp.StatusCode)
	return nil
}

// errorDetail extracts the "detail" member backends commonly return on
// failure, falling back to the trimmed body.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return truncate(string(envelope.Detail), 512)
	}
	return truncate(strings.TrimSpace(string(body)), 512)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
