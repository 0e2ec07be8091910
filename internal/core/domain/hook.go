package domain

import (
	"path/filepath"
	"strings"
)

// HookContext is the JSON document an editor hook passes on stdin.
type HookContext struct {
	Cwd       string `json:"cwd"`
	SessionID string `json:"session_id"`
	Model     any    `json:"model"`
}

// ProjectName returns the last path element of Cwd.
func (h HookContext) ProjectName() string {
	if h.Cwd == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(h.Cwd))
}

// ModelName returns the model display name. The hook sends either a plain
// string or an object with display_name/id fields.
func (h HookContext) ModelName() string {
	switch m := h.Model.(type) {
	case string:
		return m
	case map[string]any:
		for _, k := range []string{"display_name", "id"} {
			if v, ok := m[k].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// ShortSession returns the first 8 characters of the session id.
func (h HookContext) ShortSession() string {
	id := strings.TrimSpace(h.SessionID)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
