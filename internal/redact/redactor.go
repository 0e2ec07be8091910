package redact

import (
	"strings"
	"sync"
)

// minSecretLen skips exact-value replacement of trivially short strings.
const minSecretLen = 4

// Redactor removes known secret values and secret-shaped substrings from text.
type Redactor struct {
	mu      sync.RWMutex
	secrets map[string]struct{}
}

// NewRedactor creates a Redactor that knows the given secrets.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{secrets: make(map[string]struct{})}
	r.Add(secrets...)
	return r
}

// Add registers more secret values.
func (r *Redactor) Add(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		if len(s) >= minSecretLen {
			r.secrets[s] = struct{}{}
		}
	}
}

// Redact replaces registered secrets with Mask, then scrubs the result.
func (r *Redactor) Redact(text string) string {
	if r != nil {
		r.mu.RLock()
		for s := range r.secrets {
			text = strings.ReplaceAll(text, s, Mask)
		}
		r.mu.RUnlock()
	}
	return Scrub(text)
}

// RedactError returns err with a redacted message. errors.Is and errors.As
// still see the original chain.
func (r *Redactor) RedactError(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*redactedError); ok {
		// Re-check with the current secret set.
		return &redactedError{msg: r.Redact(re.msg), err: re.err}
	}
	return &redactedError{msg: r.Redact(err.Error()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
