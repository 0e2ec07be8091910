// Package redact masks credentials in log lines, traces and error messages.
package redact

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Placeholder joins the visible ends of an anonymized secret and stands
	// in for secrets too short to partially reveal.
	Placeholder = "***"

	// Mask replaces scrubbed values.
	Mask = "[REDACTED]"

	// DefaultVisible is the number of characters Anonymize keeps on each side.
	DefaultVisible = 3
)

// DefaultPatterns match common secret-shaped substrings. Capture group 1 is the
// secret value; the surrounding key text is kept.
var DefaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api[_-]?key["']?\s*[:=]\s*["']?([^"'\s,}&]+)`),
	regexp.MustCompile(`(?i)token["']?\s*[:=]\s*["']?([^"'\s,}&]+)`),
	regexp.MustCompile(`(?i)bearer\s+([A-Za-z0-9\-_.~+/=]+)`),
	regexp.MustCompile(`(?i)password["']?\s*[:=]\s*["']?([^"'\s,}&]+)`),
}

// Anonymize keeps the first and last visible characters of secret around a
// placeholder. Secrets of 2*visible characters or fewer are fully hidden.
func Anonymize(secret string, visible int) string {
	if visible < 0 {
		visible = 0
	}
	n := utf8.RuneCountInString(secret)
	if n <= 2*visible {
		return Placeholder
	}
	runes := []rune(secret)
	return string(runes[:visible]) + Placeholder + string(runes[n-visible:])
}

// Scrub masks every match of the given patterns, or DefaultPatterns when none
// are given. Scrubbing already scrubbed text returns it unchanged.
func Scrub(text string, patterns ...*regexp.Regexp) string {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	// Repeat until stable; a replacement can expose a match for a later pattern.
	for range 8 {
		next := text
		for _, p := range patterns {
			next = scrubOne(next, p)
		}
		if next == text {
			break
		}
		text = next
	}
	return text
}

func scrubOne(text string, p *regexp.Regexp) string {
	matches := p.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if len(m) >= 4 && m[2] >= 0 {
			start, end = m[2], m[3]
		}
		b.WriteString(text[last:start])
		b.WriteString(Mask)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Secret is a credential that renders anonymized in fmt and slog output.
type Secret string

// String implements fmt.Stringer.
func (s Secret) String() string {
	return Anonymize(string(s), DefaultVisible)
}

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string {
	return s.String()
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
