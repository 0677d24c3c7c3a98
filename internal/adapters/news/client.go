package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dealscope/internal/metrics"
	"dealscope/pkg/errors"
	"dealscope/pkg/logger"
)

// Searcher returns short news snippets for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)
}

// Snippet is one short news item.
type Snippet struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Published string `json:"published"`
}

// Cache stores snippet lists per query. Satisfied by the redis adapter.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Client queries a web-search style news API over HTTP.
// The endpoint is expected to accept ?q=<query>&count=<n> and return a JSON
// body with a list of result objects carrying title/snippet/url fields.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// Config configures the news client.
type Config struct {
	Endpoint     string
	APIKey       string
	HTTPTimeout  time.Duration
	ReqPerMinute int
	Cache        Cache // Optional: nil disables caching
	CacheTTL     time.Duration
}

// NewClient creates a news search client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "news endpoint is required")
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.ReqPerMinute == 0 {
		cfg.ReqPerMinute = 60
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
	}

	rps := float64(cfg.ReqPerMinute) / 60.0
	burst := cfg.ReqPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		log:      logger.Get().With("component", "news_client"),
	}, nil
}

// searchResponse mirrors the wire format of the search API.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Search returns up to limit snippets for the query, consulting the cache first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "empty news query")
	}
	if limit <= 0 {
		limit = 5
	}

	cacheKey := fmt.Sprintf("news:%s:%d", strings.ToLower(query), limit)
	if c.cache != nil {
		var cached []Snippet
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			c.log.Debugw("News cache hit", "query", query, "snippets", len(cached))
			metrics.NewsLookups.WithLabelValues("cache_hit").Inc()
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "news rate limiter")
	}

	snippets, err := c.fetch(ctx, query, limit)
	if err != nil {
		metrics.NewsLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.NewsLookups.WithLabelValues("success").Inc()

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, snippets, c.cacheTTL); err != nil {
			// Cache failures never fail the lookup
			c.log.Warnw("Failed to cache news snippets", "query", query, "error", err)
		}
	}

	return snippets, nil
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]Snippet, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse news endpoint")
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create news request")
	}
	if c.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read news response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrUnavailable, "news API status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode news response")
	}

	snippets := make([]Snippet, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(snippets) >= limit {
			break
		}
		snippets = append(snippets, Snippet{
			Title:     r.Title,
			Text:      r.Snippet,
			Source:    r.Source,
			URL:       r.URL,
			Published: r.PublishedAt,
		})
	}

	c.log.Debugw("News search complete", "query", query, "snippets", len(snippets))
	return snippets, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
