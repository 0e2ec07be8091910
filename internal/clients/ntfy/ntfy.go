// Package ntfy publishes push notifications to an ntfy server.
package ntfy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/devkit/internal/infra/transport"
	"github.com/vietddude/devkit/internal/pipeline"
)

const (
	DefaultBaseURL = "https://ntfy.sh"
	DefaultTopic   = "openclaw"
	DefaultTimeout = 10 * time.Second
)

// ErrSkipped is returned by SendWithDedupe when the message is a duplicate.
var ErrSkipped = errors.New("skipped duplicate notification")

// Priority is an ntfy priority name.
type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityMax     Priority = "max"
	PriorityUrgent  Priority = "urgent"
)

// Number maps a priority name to ntfy's 1-5 scale. Unknown names map to 3.
func (p Priority) Number() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityMin:
		return 1
	case PriorityLow:
		return 2
	case PriorityHigh:
		return 4
	case PriorityMax, PriorityUrgent:
		return 5
	default:
		return 3
	}
}

// Config holds server defaults.
type Config struct {
	BaseURL  string        `yaml:"base_url" validate:"omitempty,http_url"`
	Topic    string        `yaml:"topic"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// Message is one notification.
type Message struct {
	Title    string
	Message  string
	Priority Priority
	Tags     []string
	Emoji    string
	Click    string
	Attach   string

	// Optional per-message overrides of Config.
	Topic   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Response is the JSON ntfy returns for a published message.
type Response struct {
	ID       string   `json:"id"`
	Time     int64    `json:"time"`
	Event    string   `json:"event"`
	Topic    string   `json:"topic"`
	Message  string   `json:"message,omitempty"`
	Title    string   `json:"title,omitempty"`
	Priority int      `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Client sends notifications through the request pipeline.
type Client struct {
	cfg  Config
	pipe *pipeline.Pipeline
}

// New creates a Client.
func New(cfg Config, pipe *pipeline.Pipeline) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, pipe: pipe}
}

// Send publishes msg.
func (c *Client) Send(ctx context.Context, msg Message) (*Response, error) {
	return c.send(ctx, msg, "")
}

// SendWithDedupe publishes msg unless the same key was sent within the
// cooldown. key defaults to "title:message". A duplicate returns ErrSkipped.
func (c *Client) SendWithDedupe(ctx context.Context, msg Message, key string) (*Response, error) {
	if key == "" {
		key = msg.Title + ":" + msg.Message
	}
	return c.send(ctx, msg, key)
}

func (c *Client) send(ctx context.Context, msg Message, dedupeKey string) (*Response, error) {
	req, err := c.buildRequest(msg)
	if err != nil {
		return nil, err
	}

	res, err := c.pipe.Execute(ctx, pipeline.Call{
		Request:   req,
		DedupeKey: dedupeKey,
		Cooldown:  c.cfg.Cooldown,
	})
	if err != nil {
		return nil, fmt.Errorf("ntfy publish failed: %w", err)
	}
	if res.Skipped {
		return nil, fmt.Errorf("%w: %s", ErrSkipped, res.Dedupe.Message)
	}

	var out Response
	if err := json.Unmarshal(res.Response.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ntfy response: %w", err)
	}
	return &out, nil
}

func (c *Client) buildRequest(msg Message) (transport.Request, error) {
	if strings.TrimSpace(msg.Title) == "" {
		return transport.Request{}, transport.NewValidationError("Title", "title is required")
	}
	if strings.TrimSpace(msg.Message) == "" {
		return transport.Request{}, transport.NewValidationError("Message", "message is required")
	}

	baseURL := firstNonEmpty(msg.BaseURL, c.cfg.BaseURL)
	topic := strings.Trim(firstNonEmpty(msg.Topic, c.cfg.Topic), "/")
	if topic == "" {
		return transport.Request{}, transport.NewValidationError("Topic", "topic is required")
	}

	priority := msg.Priority
	if priority == "" {
		priority = PriorityDefault
	}

	headers := map[string]string{
		"Content-Type": "text/plain",
		"Title":        msg.Title,
		"Priority":     strconv.Itoa(priority.Number()),
	}
	tags := append([]string(nil), msg.Tags...)
	if msg.Emoji != "" {
		tags = append(tags, msg.Emoji)
	}
	if len(tags) > 0 {
		headers["Tags"] = strings.Join(tags, ",")
	}
	if msg.Click != "" {
		headers["Click"] = msg.Click
	}
	if msg.Attach != "" {
		headers["Attach"] = msg.Attach
	}

	req := transport.Request{
		URL:     strings.TrimRight(baseURL, "/") + "/" + topic,
		Method:  "POST",
		Headers: headers,
		Body:    []byte(msg.Message),
		Timeout: firstPositive(msg.Timeout, c.cfg.Timeout),
	}
	if key := firstNonEmpty(msg.APIKey, c.cfg.APIKey); key != "" {
		req.Credential = key
		req.CredentialHeader = "Authorization"
		req.CredentialPrefix = "Bearer "
	}
	return req, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
