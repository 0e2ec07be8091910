// Package transport performs single HTTP attempts for the request pipeline.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/vietddude/devkit/internal/metrics"
	"github.com/vietddude/devkit/internal/redact"
)

// Transport executes exactly one HTTP request per call. Retries belong to
// the caller.
type Transport struct {
	client    *resty.Client
	logger    *slog.Logger
	redactor  *redact.Redactor
	verbose   bool
	userAgent func() string
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the trace sink.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithVerbose enables request/response trace lines.
func WithVerbose(v bool) Option {
	return func(t *Transport) { t.verbose = v }
}

// WithRedactor shares a redactor so credentials seen here are masked elsewhere.
func WithRedactor(r *redact.Redactor) Option {
	return func(t *Transport) {
		if r != nil {
			t.redactor = r
		}
	}
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) {
		if hc != nil {
			t.client = resty.NewWithClient(hc)
		}
	}
}

// WithUserAgent sets the default User-Agent source.
func WithUserAgent(fn func() string) Option {
	return func(t *Transport) { t.userAgent = fn }
}

// New creates a Transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		client:    resty.New(),
		logger:    slog.Default(),
		redactor:  redact.NewRedactor(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.client.
		SetRetryCount(0).
		SetAllowGetMethodPayload(true).
		SetLogger(&restyLogger{logger: t.logger, redactor: t.redactor})
	return t
}

// Redactor returns the redactor that knows every credential this transport sent.
func (t *Transport) Redactor() *redact.Redactor { return t.redactor }

// Execute sends req once. Non-2xx responses are returned, not turned into
// errors; see CheckStatus.
func (t *Transport) Execute(ctx context.Context, req Request) (*Response, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t.redactor.Add(req.Credential)

	ua := ""
	if t.userAgent != nil {
		ua = t.userAgent()
	}
	requestID := uuid.NewString()
	headers := req.buildHeaders(requestID, ua)
	safeURL := t.redactor.Redact(req.URL)

	if t.verbose {
		t.logger.Info("transport request",
			"method", req.Method,
			"url", safeURL,
			"credential_header", req.CredentialHeader,
			"credential", redact.Secret(req.Credential),
			"request_id", requestID,
		)
	}

	reqCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	r := t.client.R().SetContext(reqCtx).SetHeaders(headers)
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.URL)
	elapsed := time.Since(start)
	metrics.TransportDuration.WithLabelValues(req.Method).Observe(elapsed.Seconds())

	if err != nil {
		terr := &TransportError{
			Kind:    KindNetwork,
			Method:  req.Method,
			URL:     safeURL,
			Timeout: req.Timeout,
			Err:     t.redactor.RedactError(err),
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			terr.Kind = KindTimeout
		}
		metrics.TransportRequests.WithLabelValues(req.Method, string(terr.Kind)).Inc()
		if t.verbose {
			t.logger.Info("transport failed", "request_id", requestID, "kind", terr.Kind, "error", terr)
		}
		return nil, terr
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    lowerHeaders(resp.Header()),
		RequestID:  requestID,
		Duration:   elapsed,
	}
	metrics.TransportRequests.WithLabelValues(req.Method, fmt.Sprintf("%dxx", out.StatusCode/100)).Inc()

	if t.verbose {
		t.logger.Info("transport response",
			"request_id", requestID,
			"status", out.StatusCode,
			"duration", elapsed,
		)
	}
	return out, nil
}

// restyLogger routes resty's internal messages to slog with secrets masked.
type restyLogger struct {
	logger   *slog.Logger
	redactor *redact.Redactor
}

func (l *restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(l.redactor.Redact(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l *restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(l.redactor.Redact(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l *restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(l.redactor.Redact(fmt.Sprintf(format, v...)), "component", "resty")
}
