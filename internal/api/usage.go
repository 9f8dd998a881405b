package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/ttlcache"
)

const (
	UsageEndpoint  = "https://api.anthropic.com/api/oauth/usage"
	anthropicBeta  = "oauth-2025-04-20"
	userAgent      = "claude-relay/1.0"
	requestTimeout = 10 * time.Second
	DefaultTTL     = 30 * time.Second
)

// ErrNoToken is returned by the fill path when no OAuth token is available.
var ErrNoToken = errors.New("no oauth token")

// Fetch outcomes reported to the Observer.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeNoToken = "no_token"
	OutcomeError   = "error"
)

// UsagePayload holds the parsed API response. Buckets are nil when the API
// omits them.
type UsagePayload struct {
	FiveHour       *Bucket   `json:"five_hour"`
	SevenDay       *Bucket   `json:"seven_day"`
	SevenDaySonnet *Bucket   `json:"seven_day_sonnet"`
	SevenDayOpus   *Bucket   `json:"seven_day_opus"`
	FetchedAt      time.Time `json:"-"`
}

// Bucket holds utilization info for a single time window.
type Bucket struct {
	Utilization float64 `json:"utilization"` // 0-100 percentage
	ResetsAt    string  `json:"resets_at"`   // ISO 8601 timestamp
}

// ResetTime parses the resets_at string into time.Time.
func (b Bucket) ResetTime() (time.Time, error) {
	return time.Parse(time.RFC3339, b.ResetsAt)
}

// TokenSource yields the current OAuth credential.
type TokenSource interface {
	Resolve(ctx context.Context) (Credential, error)
}

type ClientOptions struct {
	Endpoint string
	TTL      time.Duration
	Timeout  time.Duration
	Enabled  bool
	Now      func() time.Time
	Log      zerolog.Logger
	// Observer, if set, is told the outcome of every Fetch.
	Observer func(outcome string)
}

// Client fetches account utilization from the Anthropic OAuth usage API.
// Results are cached; on failure the last good payload is served instead.
type Client struct {
	http     *resty.Client
	tokens   TokenSource
	cache    *ttlcache.Slot[*UsagePayload]
	endpoint string
	ttl      time.Duration
	enabled  bool
	now      func() time.Time
	log      zerolog.Logger
	observe  func(string)
}

func NewClient(tokens TokenSource, opts ClientOptions) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = UsageEndpoint
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = requestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = func(string) {}
	}
	httpClient := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetHeader("anthropic-beta", anthropicBeta)

	return &Client{
		http:     httpClient,
		tokens:   tokens,
		cache:    ttlcache.New[*UsagePayload](opts.Now),
		endpoint: opts.Endpoint,
		ttl:      opts.TTL,
		enabled:  opts.Enabled,
		now:      opts.Now,
		log:      opts.Log,
		observe:  opts.Observer,
	}
}

// Enabled reports whether the client talks to the API at all.
func (c *Client) Enabled() bool { return c.enabled }

// Fetch returns the current usage payload. It never fails: a disabled client
// returns nil, and any error falls back to the last cached payload, which is
// nil if nothing was ever fetched.
func (c *Client) Fetch(ctx context.Context) *UsagePayload {
	if !c.enabled {
		return nil
	}
	if p, ok := c.cache.Get(); ok {
		c.observe(OutcomeCached)
		return p
	}

	p, err := c.cache.Load(ctx, c.fill)
	if err == nil {
		c.observe(OutcomeOK)
		return p
	}

	stale, _ := c.cache.Stale()
	if errors.Is(err, ErrNoToken) {
		c.observe(OutcomeNoToken)
		c.log.Debug().Err(err).Msg("usage api skipped")
		return stale
	}
	c.observe(OutcomeError)
	c.log.Warn().Err(err).Bool("stale", stale != nil).Msg("usage api fetch failed")
	return stale
}

func (c *Client) fill(ctx context.Context) (*UsagePayload, time.Time, error) {
	cred, err := c.tokens.Resolve(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrNoToken, err)
	}

	var payload UsagePayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessToken).
		ForceContentType("application/json").
		SetResult(&payload).
		Get(c.endpoint)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("api request: %w", err)
	}
	if resp.IsError() {
		return nil, time.Time{}, fmt.Errorf("api returned status %d", resp.StatusCode())
	}

	now := c.now()
	payload.FetchedAt = now
	return &payload, now.Add(c.ttl), nil
}
