package client

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/carpool/internal/retry"
)

// attempt marks whether a send is the original try or the single retry that
// follows a successful token refresh.
type attempt int

const (
	firstAttempt attempt = iota + 1
	retryAttempt
)

func (a attempt) String() string {
	if a == retryAttempt {
		return "retry"
	}
	return "first"
}

// callConfig is the per-call state built from CallOptions.
type callConfig struct {
	header    http.Header
	query     url.Values
	timeout   time.Duration
	public    bool
	retry     *retry.Policy
	requestID string
}

// CallOption adjusts a single request.
type CallOption func(*callConfig)

// WithHeader sets an extra request header.
func WithHeader(key, value string) CallOption {
	return func(c *callConfig) { c.header.Set(key, value) }
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) CallOption {
	return func(c *callConfig) { c.query.Add(key, value) }
}

// WithParams adds every value of params to the query string.
func WithParams(params url.Values) CallOption {
	return func(c *callConfig) {
		for k, vs := range params {
			for _, v := range vs {
				c.query.Add(k, v)
			}
		}
	}
}

// WithTimeout overrides the read/write default for this call.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Public sends the call without credentials and skips the fail-fast check on
// a cleared session. Used for login and registration.
func Public() CallOption {
	return func(c *callConfig) { c.public = true }
}

// WithRetry retries retryable failures (network, timeout, 5xx, 429) with
// linear backoff.
func WithRetry(p retry.Policy) CallOption {
	return func(c *callConfig) { c.retry = &p }
}

// WithRequestID fixes the X-Request-ID of the call instead of generating one.
func WithRequestID(id string) CallOption {
	return func(c *callConfig) { c.requestID = id }
}
