// Package serper calls the Serper Google search and scrape APIs.
package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/infra/transport"
	"github.com/vietddude/devkit/internal/pipeline"
	"github.com/vietddude/devkit/internal/redact"
	"github.com/vietddude/devkit/internal/retry"
	"github.com/vietddude/devkit/internal/rotation"
)

const (
	DefaultSearchURL = "https://google.serper.dev/search"
	DefaultScrapeURL = "https://scrape.serper.dev"
	DefaultTimeout   = 30 * time.Second
	maxAttempts      = 3
)

// Config holds endpoints and credentials.
type Config struct {
	APIKey        string        `yaml:"api_key"`
	APIKeys       string        `yaml:"api_keys"`
	SearchURL     string        `yaml:"search_url" validate:"omitempty,http_url"`
	ScrapeURL     string        `yaml:"scrape_url" validate:"omitempty,http_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RotationGroup string        `yaml:"rotation_group"`
}

// Client issues serper requests through the pipeline.
type Client struct {
	cfg     Config
	pipe    *pipeline.Pipeline
	rotator *rotation.Rotator
	policy  retry.Policy
	logger  *slog.Logger
}

// New creates a Client. rotator may be nil, in which case APIKeys only
// contributes its first key.
func New(cfg Config, pipe *pipeline.Pipeline, rotator *rotation.Rotator, policy retry.Policy, logger *slog.Logger) *Client {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.ScrapeURL == "" {
		cfg.ScrapeURL = DefaultScrapeURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RotationGroup == "" {
		cfg.RotationGroup = string(domain.SerperGroup)
	}
	if policy.MaxAttempts == 0 || policy.MaxAttempts > maxAttempts {
		policy.MaxAttempts = maxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, pipe: pipe, rotator: rotator, policy: policy, logger: logger}
}

// APIKey picks the credential: explicit, then rotated from APIKeys, then
// APIKey.
func (c *Client) APIKey(ctx context.Context, provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}

	if keys := domain.SplitCredentials(c.cfg.APIKeys); len(keys) > 0 {
		if c.rotator == nil {
			return keys[0], nil
		}
		if k := c.rotator.Next(ctx, keys, c.cfg.RotationGroup); k != "" {
			return k, nil
		}
	}

	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	return "", transport.NewValidationError("APIKey",
		"SERPER_API_KEY or SERPER_API_KEYS environment variable is required. Get a free API key at: https://serper.dev")
}

// Search runs a Google search.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, transport.NewValidationError("Query", "query is required")
	}
	body := searchRequest{
		Q:        query,
		Num:      orInt(opts.Num, 10),
		GL:       orString(opts.GL, "us"),
		HL:       orString(opts.HL, "en"),
		Page:     orInt(opts.Page, 1),
		Location: opts.Location,
	}

	raw, err := c.post(ctx, c.cfg.SearchURL, body, opts.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("serper search failed: %w", err)
	}

	var out SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// Scrape fetches a page through serper.
func (c *Client) Scrape(ctx context.Context, url string, opts ScrapeOptions) (*ScrapeResponse, error) {
	if strings.TrimSpace(url) == "" {
		return nil, transport.NewValidationError("URL", "url is required")
	}
	body := scrapeRequest{URL: url, IncludeMarkdown: opts.Markdown}

	raw, err := c.post(ctx, c.cfg.ScrapeURL, body, opts.APIKey,
		map[string]string{"User-Agent": transport.RandomUserAgent()})
	if err != nil {
		return nil, fmt.Errorf("serper scrape failed: %w", err)
	}

	var out ScrapeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode scrape response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) post(ctx context.Context, url string, payload any, provided string, headers map[string]string) ([]byte, error) {
	key, err := c.APIKey(ctx, provided)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.logger.Debug("sending serper request", "url", url, "api_key", redact.Secret(key))

	policy := c.policy
	res, err := c.pipe.Execute(ctx, pipeline.Call{
		Request: transport.Request{
			URL:        url,
			Method:     "POST",
			Headers:    headers,
			Body:       data,
			Timeout:    c.cfg.Timeout,
			Credential: key,
		},
		Policy: &policy,
	})
	if err != nil {
		return nil, err
	}
	return res.Response.Body, nil
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
