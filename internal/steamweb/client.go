// Package steamweb is a small client for the parts of the steam web and store apis used to build the
// friend list. Enrichment lookups never return errors, failures collapse into NoData so that a
// broken lookup only costs us the extra data, never the cycle.
package steamweb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/leighmacdonald/steam-friends/internal/network/encoding"
)

var (
	ErrFetch        = errors.New("failed to fetch from steam api")
	ErrRateLimited  = errors.New("rate limited by steam api")
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("steam api rejected credentials")
)

// HTTPDoer defines a common interface for HTTP clients.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Status is the outcome of an enrichment lookup.
type Status int

const (
	// NoData means nothing usable came back. The result should not be cached.
	NoData Status = iota
	// Found means the lookup succeeded.
	Found
	// Invalid means the entity does not exist and never will.
	Invalid
)

// Options configures a Client.
type Options struct {
	APIKey       string
	APIBaseURL   string
	StoreBaseURL string
	// Timeout applied to each individual request.
	Timeout time.Duration
	// Cooldown is how long lookups are paused after being rate limited.
	Cooldown time.Duration
	// MinReviews is the minimum number of reviews a score needs before it is accepted.
	MinReviews int
}

// New creates a new steam api client.
func New(httpClient HTTPDoer, opts Options) *Client {
	return &Client{
		httpClient: httpClient,
		opts:       opts,
		mu:         &sync.RWMutex{},
		now:        time.Now,
	}
}

type Client struct {
	httpClient    HTTPDoer
	opts          Options
	mu            *sync.RWMutex
	scoreDeadline time.Time
	usageDeadline time.Time
	now           func() time.Time
}

// Configure replaces the client options. Any active cooldown is kept.
func (c *Client) Configure(opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts = opts
}

func (c *Client) options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.opts
}

// coolingDown reports if the deadline is still in the future.
func (c *Client) coolingDown(deadline *time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.now().Before(*deadline)
}

func (c *Client) startCooldown(deadline *time.Time, cooldown time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	*deadline = c.now().Add(cooldown)
}

func resolve(base string, endpoint string, params url.Values) (string, error) {
	baseURL, errBase := url.Parse(base)
	if errBase != nil {
		return "", errBase
	}

	fullURL := baseURL.JoinPath(endpoint)
	fullURL.RawQuery = params.Encode()

	return fullURL.String(), nil
}

// getJSON performs a GET request bounded by the configured timeout and decodes a successful
// response into T. Non 200 responses are mapped onto the package errors.
func getJSON[T any](ctx context.Context, c *Client, base string, endpoint string, params url.Values) (T, error) {
	var value T

	opts := c.options()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	fullURL, errURL := resolve(base, endpoint, params)
	if errURL != nil {
		return value, errors.Join(errURL, ErrFetch)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if errReq != nil {
		return value, errors.Join(errReq, ErrFetch)
	}

	resp, errResp := c.httpClient.Do(req)
	if errResp != nil {
		return value, errors.Join(errResp, ErrFetch)
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			slog.Error("Failed to close response body", slog.String("error", err.Error()))
		}
	}(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return value, ErrRateLimited
	case http.StatusNotFound:
		return value, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return value, ErrUnauthorized
	default:
		return value, errors.Join(&StatusError{Code: resp.StatusCode, Endpoint: endpoint}, ErrFetch)
	}

	decoded, errDecode := encoding.UnmarshalJSON[T](resp.Body)
	if errDecode != nil {
		return value, errors.Join(errDecode, ErrFetch)
	}

	return decoded, nil
}

// StatusError is returned for unexpected http status codes.
type StatusError struct {
	Code     int
	Endpoint string
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.Code) + " from " + e.Endpoint
}
