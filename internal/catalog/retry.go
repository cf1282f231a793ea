package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// get performs a rate-limited GET with exponential backoff. Throttling and
// network failures are retried; any other HTTP status fails immediately.
// When every attempt was throttled, it waits out the cooldown and tries once
// more before giving up.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		body, err := c.attempt(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if !c.retryable(ctx, err) {
			return nil, err
		}
		lastErr = err
		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		wait := c.backoff(attempt)
		slog.Warn("Catalog request failed, retrying",
			"url", rawURL,
			"attempt", attempt+1,
			"wait", wait,
			"err", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	if errors.Is(lastErr, ErrThrottled) && c.cfg.ThrottleCooldown > 0 {
		slog.Warn("Catalog still throttling, cooling down before a final attempt",
			"url", rawURL,
			"cooldown", c.cfg.ThrottleCooldown)
		if err := c.sleep(ctx, c.cfg.ThrottleCooldown); err != nil {
			return nil, err
		}
		body, err := c.attempt(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrThrottled
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	return !errors.As(err, &statusErr)
}

// backoff is base * 2^attempt plus jitter, capped at MaxBackoff
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.BaseDelay << attempt
	if wait <= 0 || (c.cfg.MaxBackoff > 0 && wait > c.cfg.MaxBackoff) {
		wait = c.cfg.MaxBackoff
	}
	wait += c.jitter()
	if c.cfg.MaxBackoff > 0 && wait > c.cfg.MaxBackoff {
		wait = c.cfg.MaxBackoff
	}
	return wait
}
