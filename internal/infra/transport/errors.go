package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies transport failures.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
)

const maxBodyInError = 512

// TransportError is a failed attempt that produced no HTTP response.
type TransportError struct {
	Kind    ErrorKind
	Method  string
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TransportError) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("request timeout after %v: %s %s", e.Timeout, e.Method, e.URL)
	}
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error   { return e.Err }
func (e *TransportError) Retryable() bool { return true }

// AuthError is a 401/403 response. It is never retried.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return statusMessage(e.StatusCode, e.Body)
}

func (e *AuthError) Retryable() bool { return false }

// RateLimitError is a 429 response.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return statusMessage(e.StatusCode, e.Body)
}

func (e *RateLimitError) Retryable() bool { return true }

// HTTPError is any other non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return statusMessage(e.StatusCode, e.Body)
}

func (e *HTTPError) Retryable() bool { return true }

// ValidationError is malformed caller input. It never reaches the retry loop.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.Message, e.Field)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Retryable() bool { return false }

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func statusMessage(code int, body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError] + "..."
	}
	if body == "" {
		body = http.StatusText(code)
	}
	return fmt.Sprintf("HTTP %d: %s", code, body)
}

// CheckStatus converts a non-2xx response into a typed error.
func CheckStatus(resp *Response) error {
	if resp == nil {
		return nil
	}
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	body := string(resp.Body)
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: code, Body: body}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			StatusCode: code,
			RetryAfter: parseRetryAfter(resp.Headers["retry-after"], time.Now()),
			Body:       body,
		}
	default:
		return &HTTPError{StatusCode: code, Body: body}
	}
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
