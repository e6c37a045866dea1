// Package httpx wraps resty with the status-code-aware retry policy shared by
// every outbound provider client: 429 honors Retry-After, 429/5xx and network
// errors back off exponentially, and exhausted retries surface the last
// response or error to the caller.
package httpx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Policy controls retry behavior for one client.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

// DefaultPolicy mirrors the pacing used across the batch scripts.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// SendFunc issues one request attempt. It is called again on each retry so the
// request body is rebuilt fresh.
type SendFunc func() (*resty.Response, error)

// Client is a retrying HTTP client. A zero slot count of in-flight requests is
// assumed; callers needing concurrency limits gate above this layer.
type Client struct {
	rest   *resty.Client
	policy Policy
}

// New creates a client with the given policy.
func New(policy Policy) *Client {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	rest := resty.New()
	if policy.Timeout > 0 {
		rest.SetTimeout(policy.Timeout)
	}
	return &Client{rest: rest, policy: policy}
}

// R returns a fresh resty request on the underlying client.
func (c *Client) R() *resty.Request {
	return c.rest.R()
}

// Do runs send with the retry policy applied. The last response (for HTTP
// errors) or error (for network errors) is returned once retries are
// exhausted; nothing is swallowed.
func (c *Client) Do(ctx context.Context, send SendFunc) (*resty.Response, error) {
	var lastResp *resty.Response
	var lastErr error

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		resp, err := send()
		if err != nil {
			lastErr = err
			if attempt < c.policy.MaxRetries {
				delay := c.backoff(attempt)
				logrus.Debugf("network error, retry %d/%d in %v: %v", attempt+1, c.policy.MaxRetries, delay, err)
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		lastResp = resp
		status := resp.StatusCode()

		// A 429 on the final attempt is returned right away; waiting out
		// Retry-After with no attempt left would just delay the caller.
		if status == 429 && attempt < c.policy.MaxRetries {
			delay := retryAfter(resp, c.backoff(attempt))
			logrus.Debugf("rate limited, waiting %v", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if status >= 500 && attempt < c.policy.MaxRetries {
			delay := c.backoff(attempt)
			logrus.Debugf("server error %d, retry %d/%d in %v", status, attempt+1, c.policy.MaxRetries, delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// Get is a retrying GET for callers with no request customization.
func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	return c.Do(ctx, func() (*resty.Response, error) {
		return c.R().SetContext(ctx).Get(url)
	})
}

// backoff returns base*2^attempt. No jitter: the deterministic floor keeps the
// policy testable.
func (c *Client) backoff(attempt int) time.Duration {
	return c.policy.BaseDelay * (1 << attempt)
}

func retryAfter(resp *resty.Response, fallback time.Duration) time.Duration {
	header := resp.Header().Get("Retry-After")
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
