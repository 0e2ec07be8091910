package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultCredentialHeader = "X-API-KEY"
	DefaultMethod           = http.MethodPost
	ContentTypeJSON         = "application/json"
)

// Request describes one outbound HTTP attempt.
type Request struct {
	URL     string            `validate:"required,http_url"`
	Method  string            `validate:"omitempty,oneof=GET POST"`
	Headers map[string]string `validate:"dive,keys,required,endkeys"`
	Body    []byte
	Timeout time.Duration `validate:"gte=0"`

	// Credential is injected as CredentialHeader: CredentialPrefix + Credential.
	Credential       string
	CredentialHeader string
	CredentialPrefix string
}

// Response is the result of an attempt that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string // lower-cased names
	RequestID  string
	Duration   time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// withDefaults fills in method, timeout and credential header.
func (r Request) withDefaults() Request {
	if r.Method == "" {
		r.Method = DefaultMethod
	}
	r.Method = strings.ToUpper(r.Method)
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	if r.CredentialHeader == "" {
		r.CredentialHeader = DefaultCredentialHeader
	}
	return r
}

// Validate reports malformed input as a *ValidationError. Defaults are
// applied first.
func (r Request) Validate() error {
	r = r.withDefaults()
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fe.Field(), fmt.Sprintf("failed %q check", fe.Tag()))
		}
		return NewValidationError("", err.Error())
	}
	if strings.ContainsAny(r.CredentialHeader, " :\r\n") {
		return NewValidationError("CredentialHeader", "invalid header name")
	}
	if strings.ContainsAny(r.Credential, "\r\n") {
		return NewValidationError("Credential", "must not contain line breaks")
	}
	return nil
}

// buildHeaders merges caller headers with the content type, credential,
// request id and user agent.
func (r Request) buildHeaders(requestID, userAgent string) map[string]string {
	h := make(map[string]string, len(r.Headers)+4)
	for k, v := range r.Headers {
		h[k] = v
	}

	if len(r.Body) > 0 && !hasHeader(h, "Content-Type") {
		h["Content-Type"] = ContentTypeJSON
	}
	if r.Credential != "" {
		h[r.CredentialHeader] = r.CredentialPrefix + r.Credential
	}
	h["X-Request-ID"] = requestID
	if !hasHeader(h, "User-Agent") && userAgent != "" {
		h["User-Agent"] = userAgent
	}
	return h
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func lowerHeaders(src http.Header) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}
