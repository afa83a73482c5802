// Package webclient standardizes HTTP traffic toward platform backends and
// maps transport and status failures onto the application error taxonomy, so
// business methods can hand backend problems straight to the client.
package webclient

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/erg0nix/spill/jsonrpc"
	"github.com/erg0nix/spill/platform"
)

const (
	// DefaultTimeout bounds one request end to end.
	DefaultTimeout = 60 * time.Second
	// DefaultLimit caps simultaneous connections per host.
	DefaultLimit = 20
)

// Client is an HTTP client with defaults suited for backend polling from an
// integration. The zero value is not usable; create it with New.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     DefaultLimit,
				MaxIdleConnsPerHost: DefaultLimit,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request. Responses with status < 400 are returned as-is;
// everything else is closed and translated to an application error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, translateTransportError(err)
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusUnauthorized &&
		resp.StatusCode != http.StatusForbidden &&
		resp.StatusCode != http.StatusTooManyRequests {
		c.logger.Warn("unexpected client error status",
			"status", resp.StatusCode, "method", req.Method, "url", req.URL.String())
	}
	return nil, translateStatus(resp.StatusCode)
}

// Get is a convenience wrapper around Do.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, jsonrpc.UnknownError(err.Error())
	}
	return c.Do(req)
}

func translateTransportError(err error) *jsonrpc.Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return platform.BackendTimeout()
	case errors.As(err, &netErr) && netErr.Timeout():
		return platform.BackendTimeout()
	default:
		return platform.NetworkError()
	}
}

func translateStatus(status int) *jsonrpc.Error {
	switch {
	case status == http.StatusUnauthorized:
		return platform.AuthenticationRequired()
	case status == http.StatusForbidden:
		return platform.AccessDenied()
	case status == http.StatusServiceUnavailable:
		return platform.BackendNotAvailable()
	case status == http.StatusTooManyRequests:
		return platform.TooManyRequests()
	case status >= 500:
		return platform.BackendError()
	default:
		return jsonrpc.UnknownError(nil)
	}
}
