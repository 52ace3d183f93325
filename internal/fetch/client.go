package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBadHTTPStatus is returned for any non-2xx response.
var ErrBadHTTPStatus = errors.New("unexpected http status")

// Client issues GET requests with the tool's user agent and, when a token is
// configured, a bearer credential.
type Client struct {
	http      *http.Client
	token     string
	userAgent string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithToken attaches Authorization: Bearer <token> to requests that ask for it.
func WithToken(token string) ClientOption {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a Client backed by http.DefaultClient.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      http.DefaultClient,
		userAgent: "linux-deps",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// header is a single request header.
type header struct {
	key, value string
}

// Open sends a GET and returns the response when its status is 2xx.
// The caller owns the body.
func (c *Client) Open(ctx context.Context, rawURL string, authenticated bool, headers ...header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)

	if authenticated && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	return response, nil
}

// Get downloads rawURL into memory.
func (c *Client) Get(ctx context.Context, rawURL string, authenticated bool) ([]byte, error) {
	response, err := c.Open(ctx, rawURL, authenticated)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return data, nil
}
