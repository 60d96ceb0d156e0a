// webclient is the paced HTTP client shared by the provider adapters.
// Every request waits on a rate.Limiter, so consecutive requests are at
// least one interval apart regardless of which provider sends them.
package webclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 20 * time.Millisecond
	userAgent       = "tsds/1 (+https://github.com/SerialForBreakfast/TooScaryDidntStream)"
)

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (and its timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLimiter shares limiter with another Client.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewLimiter allows one request per interval without bursting.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// New returns a Client with the per-request timeout and minimum
// interval between requests. Zero values select the defaults.
func New(timeout, interval time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: NewLimiter(interval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limiter returns the limiter pacing this client.
func (c *Client) Limiter() *rate.Limiter {
	return c.limiter
}

// Get performs a paced GET and returns the response for a 2xx status.
// The caller closes the body.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", Redact(endpoint), unwrapURLError(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{URL: Redact(endpoint), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// GetJSON decodes the JSON body of a paced GET into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, v any) error {
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", Redact(endpoint), err)
	}
	return nil
}

// GetBytes reads at most limit bytes of the body of a paced GET.
func (c *Client) GetBytes(ctx context.Context, endpoint string, limit int64) ([]byte, error) {
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Redact(endpoint), err)
	}
	return b, nil
}

// Redact drops the query string so api keys never end up in logs or
// errors.
func Redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}

// net/http wraps transport errors in *url.Error which repeats the
// full url, query string included.
func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
