package domain

import "strings"

// CredentialGroup names an independent rotation sequence.
type CredentialGroup string

const (
	// DefaultGroup is used when a caller does not name a group.
	DefaultGroup CredentialGroup = "default"

	// SerperGroup is the rotation group used by the serper client.
	SerperGroup CredentialGroup = "serper"
)

// SplitCredentials parses a delimited credential list such as "k1;k2;k3".
// Semicolons and newlines separate entries. Entries are trimmed and blanks dropped.
func SplitCredentials(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '\n' || r == '\r'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
