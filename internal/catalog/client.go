package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/ratelimit"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/similarity"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

const (
	DefaultSearchURL = "https://www.loc.gov/search/"
	DefaultItemURL   = "https://www.loc.gov/item/"
)

// Config holds the catalog client's endpoints, retry policy and matching threshold
type Config struct {
	SearchURL string
	ItemURL   string

	MaxRetries       int
	BaseDelay        time.Duration
	MaxBackoff       time.Duration
	ThrottleCooldown time.Duration
	PostRequestDelay time.Duration
	RequestTimeout   time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	// AcceptThreshold is the sort/set score a result needs to be kept
	AcceptThreshold int
	MaxCandidates   int
}

// DefaultConfig returns the settings tuned against loc.gov
func DefaultConfig() Config {
	return Config{
		SearchURL:         DefaultSearchURL,
		ItemURL:           DefaultItemURL,
		MaxRetries:        5,
		BaseDelay:         1500 * time.Millisecond,
		MaxBackoff:        2 * time.Minute,
		ThrottleCooldown:  3660 * time.Second,
		PostRequestDelay:  1500 * time.Millisecond,
		RequestTimeout:    30 * time.Second,
		RateLimitRequests: 9,
		RateLimitWindow:   time.Minute,
		AcceptThreshold:   90,
		MaxCandidates:     5,
	}
}

// Client searches the Library of Congress catalog and scores results
// against the requested title.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter shares an existing rate limiter with the client
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithSleep replaces the delay function used for backoff and throttling
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithJitter replaces the random jitter added to every delay
func WithJitter(jitter func() time.Duration) Option {
	return func(c *Client) {
		if jitter != nil {
			c.jitter = jitter
		}
	}
}

// NewClient creates a new catalog client
func NewClient(cfg Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaults.SearchURL
	}
	if cfg.ItemURL == "" {
		cfg.ItemURL = defaults.ItemURL
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MaxCandidates < 1 {
		cfg.MaxCandidates = defaults.MaxCandidates
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		sleep:  sleepContext,
		jitter: func() time.Duration { return rand.N(time.Second) },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow, nil)
	}
	return c
}

// Limiter returns the rate limiter every request of this client draws from
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Search screens the title, queries the search endpoint and returns the
// results whose title scores at or above the accept threshold.
func (c *Client) Search(ctx context.Context, title string) ([]models.MatchCandidate, error) {
	cleaned, err := textnorm.Screen(title)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search url: %w", err)
	}
	params := url.Values{}
	params.Set("all", "true")
	params.Set("q", cleaned)
	params.Set("fo", "json")
	params.Set("fa", "original-format:book")
	endpoint.RawQuery = params.Encode()

	body, err := c.get(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog for %q: %w", cleaned, err)
	}
	defer c.pause(ctx)

	var payload SearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	scorer := similarity.NewTitleScorer(c.cfg.AcceptThreshold)
	var candidates []models.MatchCandidate
	for _, result := range payload.Results {
		resultTitle := strings.TrimSpace(result.Title)
		match := scorer.Compare(cleaned, resultTitle)
		if !match.Accepted {
			continue
		}
		candidate := models.MatchCandidate{
			SourceTitle: resultTitle,
			LCCN:        dedupe(result.NumberLCCN),
			OCLC:        dedupe(result.NumberOCLC),
			Score:       match.Score,
			Origin:      models.OriginRemote,
		}
		if !candidate.HasIdentifier() {
			continue
		}
		slog.Debug("Matched catalog result",
			"title", cleaned,
			"result", resultTitle,
			"mode", match.Mode,
			"score", match.Score,
			"lccn", candidate.LCCN)
		candidates = append(candidates, candidate)
		if len(candidates) >= c.cfg.MaxCandidates {
			break
		}
	}

	if len(candidates) == 0 {
		slog.Debug("No catalog results matched", "title", cleaned, "results", len(payload.Results))
	}
	return candidates, nil
}

// TitleForLCCN fetches the catalog's canonical title for an LCCN. An item
// without a title yields an empty string and no error.
func (c *Client) TitleForLCCN(ctx context.Context, lccn string) (string, error) {
	lccn = strings.TrimSpace(lccn)
	if lccn == "" {
		return "", fmt.Errorf("lccn must not be empty")
	}
	itemURL := strings.TrimRight(c.cfg.ItemURL, "/") + "/" + url.PathEscape(lccn) + "/?fo=json"

	body, err := c.get(ctx, itemURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch item %s: %w", lccn, err)
	}
	defer c.pause(ctx)

	var payload ItemResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode item response: %w", err)
	}
	return strings.TrimSpace(payload.Item.Title), nil
}

// pause applies the post-request delay that keeps us under the catalog's
// informal limits
func (c *Client) pause(ctx context.Context) {
	if c.cfg.PostRequestDelay <= 0 {
		return
	}
	_ = c.sleep(ctx, c.cfg.PostRequestDelay+c.jitter())
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
