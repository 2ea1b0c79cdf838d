// Package pump is a client for the Pump job service, which runs long-lived
// query-and-emit jobs. It submits jobs, previews queries and follows a job
// until it reaches a completed stage.
package pump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"watershed/internal/middleware"
)

const (
	// ServicePath is where the Pump service is mounted on a cluster master.
	ServicePath = "/pump"

	// DefaultBaseURL is where a Pump service listens on a cluster master.
	DefaultBaseURL = "http://localhost:8080" + ServicePath

	// DefaultPollInterval is the wait between two fetches of a polled job.
	DefaultPollInterval = time.Second

	defaultTimeout = 30 * time.Second
)

// Client talks to one Pump service. It issues one request at a time and
// holds no job state between calls.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithPollInterval sets the wait between fetches of a polled job.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.PollInterval = d }
}

// WithLogger sets the logger used for request traces and degraded results.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// NewClient returns a client for the service rooted at baseURL, e.g.
// http://localhost:8080/pump.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: middleware.NewRequestIDTransport(nil),
		},
		PollInterval: DefaultPollInterval,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends a request to path below the base URL. A non-nil body is encoded
// as JSON. The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// CheckError returns an *APIError for a non-2xx response, consuming and
// closing its body. Successful responses are left untouched.
func CheckError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := ReadBody(resp)

	apiErr := &APIError{HTTPStatus: resp.StatusCode, Body: string(data)}
	var structured struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &structured); err == nil && structured.Message != "" {
		apiErr.Message = structured.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// call performs one request and returns the body of a 2xx response. Every
// failure short of that is a ServiceUnreachableError, except cancellation of
// ctx, which is returned as is.
func (c *Client) call(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	url := c.BaseURL + path
	c.logger().Debug("pump request", "op", op, "method", method, "url", url)

	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ServiceUnreachableError{Op: op, URL: url, Err: err}
	}
	c.logger().Debug("pump response", "op", op, "response", fmt.Sprintf("<Response [%s]>", resp.Status))

	if err := CheckError(resp); err != nil {
		return nil, &ServiceUnreachableError{Op: op, URL: url, Err: err}
	}
	data, err := ReadBody(resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ServiceUnreachableError{Op: op, URL: url, Err: err}
	}
	c.logger().Debug("pump response body", "op", op, "body", string(data))
	return data, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
